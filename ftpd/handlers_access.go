package ftpd

import (
	"fmt"
	"time"
)

// handleUSER implements the USER verb: a name matching the configured
// credential moves the session to AwaitingPassword; anything else is
// rejected without revealing which part failed.
func handleUSER(sess *Session, arg string) Result {
	username, _ := sess.server.creds.Snapshot()
	if arg != username {
		sess.userState = stateAnonymous
		return sess.reply(530, "Not logged in")
	}
	sess.user = arg
	sess.userState = stateAwaitingPassword
	return sess.reply(331, "OK. Password required")
}

// handlePASS implements PASS, gated on USER having already run.
func handlePASS(sess *Session, arg string) Result {
	if sess.userState == stateAnonymous {
		return sess.reply(530, "Login with USER first")
	}
	_, password := sess.server.creds.Snapshot()
	if arg != password {
		sess.userState = stateAnonymous
		return sess.reply(530, "Not logged in")
	}
	sess.userState = stateLoggedIn
	return sess.reply(230, fmt.Sprintf("OK, logged in as %s", sess.user))
}

// handleAUTH always refuses: TLS/FTPS is out of scope.
func handleAUTH(sess *Session, _ string) Result {
	return sess.reply(504, "Not available")
}

// handleFEAT enumerates the RFC 3659 extensions this engine actually
// implements.
func handleFEAT(sess *Session, _ string) Result {
	return sess.replyMultiline(211, []string{
		"Features:",
		" MDTM",
		" MLSD",
		" SIZE",
		" SITE FREE",
		"End",
	})
}

func handleSYST(sess *Session, _ string) Result {
	return sess.reply(215, "FTP Server, V1.0")
}

func handleNOOP(sess *Session, _ string) Result {
	return sess.reply(200, "Zzz...")
}

// handleSTAT reports the idle-disconnect timeout in minutes.
func handleSTAT(sess *Session, _ string) Result {
	minutes := time.Duration(sess.server.cfg.InactiveIterations) * sess.server.cfg.ServerReadTimeout / time.Minute
	return sess.reply(221, fmt.Sprintf("Timeout (%d minutes)", minutes))
}
