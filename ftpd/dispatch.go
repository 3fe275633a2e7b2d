package ftpd

import "github.com/ashgrove/miniftpd/internal/wire"

// HandlerFunc is the single signature every command handler implements:
// input is the session and the command argument, output is the tagged
// Result the session loop propagates (§9, "Command table as data").
type HandlerFunc func(*Session, string) Result

type tableEntry struct {
	verb          string
	handler       HandlerFunc
	requiresLogin bool
}

// commandTable is a static ordered list of (verb, handler) entries, scanned
// linearly on dispatch — n is small (≤32) so a map buys nothing but loses
// the deterministic, data-driven shape the source's dispatcher has. QUIT is
// deliberately absent: the session loop handles it inline so the "quit the
// loop" signal is a distinct return value rather than an overloaded one
// (§9).
var commandTable = []tableEntry{
	{"USER", handleUSER, false},
	{"PASS", handlePASS, false},
	{"AUTH", handleAUTH, false},
	{"FEAT", handleFEAT, false},
	{"SYST", handleSYST, false},
	{"NOOP", handleNOOP, true},
	{"PWD", handlePWD, true},
	{"CWD", handleCWD, true},
	{"CDUP", handleCDUP, true},
	{"TYPE", handleTYPE, true},
	{"STRU", handleSTRU, true},
	{"MODE", handleMODE, true},
	{"PASV", handlePASV, true},
	{"PORT", handlePORT, true},
	{"LIST", handleLIST, true},
	{"NLST", handleNLST, true},
	{"MLSD", handleMLSD, true},
	{"DELE", handleDELE, true},
	{"RETR", handleRETR, true},
	{"STOR", handleSTOR, true},
	{"MKD", handleMKD, true},
	{"RMD", handleRMD, true},
	{"RNFR", handleRNFR, true},
	{"RNTO", handleRNTO, true},
	{"MDTM", handleMDTM, true},
	{"SIZE", handleSIZE, true},
	{"SITE", handleSITE, true},
	{"STAT", handleSTAT, true},
}

func lookupHandler(verb string) (tableEntry, bool) {
	for _, e := range commandTable {
		if e.verb == verb {
			return e, true
		}
	}
	return tableEntry{}, false
}

// dispatch maps a parsed command to its handler, enforcing the login gate
// and bracketing the call with the cmd_begin/cmd_end observability hooks.
// It returns whether the session loop should terminate (QUIT) and the
// handler's Result.
func (sess *Session) dispatch(cmd wire.Command) (quit bool, result Result) {
	if cmd.Verb == "QUIT" {
		sess.reply(221, "Goodbye")
		return true, ResultOk
	}

	entry, ok := lookupHandler(cmd.Verb)
	if !ok {
		return false, sess.reply(500, "Unknown command")
	}

	if entry.requiresLogin && sess.userState != stateLoggedIn {
		// Deliberate silent no-op: the source replies to nothing here, and
		// that behavior is preserved even though it is unconventional
		// (§4.4, "Login gate").
		return false, ResultOk
	}

	sess.server.hooks.cmdBegin(entry.verb)
	result = entry.handler(sess, cmd.Arg)
	sess.server.hooks.cmdEnd(entry.verb)
	return false, result
}
