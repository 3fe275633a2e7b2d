package ftpd_test

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var pasvTupleRe = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

func openPassiveData(t *testing.T, c *ctrlConn) net.Conn {
	t.Helper()
	c.send(t, "PASV")
	reply := c.readLine(t)
	m := pasvTupleRe.FindStringSubmatch(reply)
	require.Len(t, m, 7, "unparsable PASV reply: %q", reply)

	p1, _ := strconv.Atoi(m[5])
	p2, _ := strconv.Atoi(m[6])
	port := p1*256 + p2

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 2*time.Second)
	require.NoError(t, err)
	return conn
}

// TestListPassive exercises scenario S2: a passive LIST of a directory
// containing one file and one subdirectory.
func TestListPassive(t *testing.T) {
	addr, root := testServer(t)
	writeFile(t, root, "file.bin", string(make([]byte, 100)))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))

	c := dialControl(t, addr)
	defer c.conn.Close()
	c.login(t, "user", "pass")

	data := openPassiveData(t, c)
	defer data.Close()

	c.send(t, "LIST")
	require.Contains(t, c.readLine(t), "150")

	body, err := io.ReadAll(data)
	require.NoError(t, err)
	require.Contains(t, string(body), "+/,\tsub\r\n")
	require.Contains(t, string(body), "+r,s100,\tfile.bin\r\n")

	require.Contains(t, c.readLine(t), "226")
}

// TestStoreAndRetrieve exercises scenario S3 (upload with default 32 KiB
// buffer, split across two filesystem writes) and a round-trip RETR.
func TestStoreAndRetrieve(t *testing.T) {
	addr, root := testServer(t)

	c := dialControl(t, addr)
	defer c.conn.Close()
	c.login(t, "user", "pass")

	payload := make([]byte, 33792)
	for i := range payload {
		payload[i] = byte(i)
	}

	data := openPassiveData(t, c)
	c.send(t, "STOR x.bin")
	require.Contains(t, c.readLine(t), "150")
	_, err := data.Write(payload)
	require.NoError(t, err)
	require.NoError(t, data.(*net.TCPConn).CloseWrite())
	require.Contains(t, c.readLine(t), "226")
	data.Close()

	onDisk, err := os.ReadFile(filepath.Join(root, "x.bin"))
	require.NoError(t, err)
	require.Equal(t, payload, onDisk)

	data2 := openPassiveData(t, c)
	c.send(t, "RETR x.bin")
	require.Contains(t, c.readLine(t), "150")
	received, err := io.ReadAll(bufio.NewReader(data2))
	require.NoError(t, err)
	require.Equal(t, payload, received)
	require.Contains(t, c.readLine(t), "226")
}

// TestStorBufferingIsSectorAligned locks in scenario S3's precise write
// shape: a 33792-byte upload against the default 32 KiB buffer reaches the
// filesystem as exactly one 32768-byte write and one 1024-byte flush.
func TestStorBufferingIsSectorAligned(t *testing.T) {
	fake := &recordingFS{}
	addr := startServerWithFS(t, fake)

	c := dialControl(t, addr)
	defer c.conn.Close()
	c.login(t, "user", "pass")

	data := openPassiveData(t, c)
	c.send(t, "STOR x.bin")
	require.Contains(t, c.readLine(t), "150")

	payload := make([]byte, 33792)
	_, err := data.Write(payload)
	require.NoError(t, err)
	require.NoError(t, data.(*net.TCPConn).CloseWrite())
	require.Contains(t, c.readLine(t), "226")
	data.Close()

	require.Equal(t, []int{32768, 1024}, fake.writes)
}
