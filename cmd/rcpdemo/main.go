// Rcpdemo — CLI entry point.
//
// This tool exercises a single rcp.Session end to end: one side accepts,
// the other connects, and both exchange line-delimited stdin input as
// reliable messages. Each run's log output is tagged with a per-process
// correlation id.
package main

import (
	"bufio"
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/rcpnet/rcp"
	"github.com/rcpnet/rcp/internal/rcplog"
)

func main() {
	role := flag.String("role", "", "Role: listen or connect")
	localPort := flag.Int("port", 0, "Local port to bind (0 lets the OS choose)")
	remoteHost := flag.String("host", "127.0.0.1", "Remote host (connect only)")
	remotePort := flag.Int("remote", 0, "Remote port (connect only)")
	flag.Parse()

	session := uuid.New().String()[:8]
	log := rcplog.New(session)

	sess := rcp.NewSession(rcp.Options{Logger: log})

	if _, err := sess.Bind(uint16(*localPort)); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer sess.Unbind()

	pterm.Info.Printfln("bound on port %d (session %s)", sess.LocalPort(), session)

	switch *role {
	case "listen":
		runListen(sess)
	case "connect":
		runConnect(sess, *remoteHost, *remotePort)
	default:
		pterm.Error.Println("missing or invalid -role: must be 'listen' or 'connect'")
		os.Exit(1)
	}

	runChat(sess)
}

func runListen(sess *rcp.Session) {
	pterm.Info.Println("waiting for a peer...")
	if ok, err := sess.Accept(); !ok {
		pterm.Error.Printfln("accept failed: %v", err)
		os.Exit(1)
	}
	pterm.Success.Printfln("connected to %s:%d", sess.RemoteAddr(), sess.RemotePort())
}

func runConnect(sess *rcp.Session, host string, port int) {
	if port < 1 || port > 65535 {
		pterm.Error.Println("missing or invalid -remote port")
		os.Exit(1)
	}
	pterm.Info.Printfln("connecting to %s:%d...", host, port)
	if ok, err := sess.Connect(host, uint16(port)); !ok {
		pterm.Error.Printfln("connect failed: %v", err)
		os.Exit(1)
	}
	pterm.Success.Println("connected")
}

// runChat forwards stdin lines as reliable sends and prints whatever
// arrives, until stdin closes or the session drops.
func runChat(sess *rcp.Session) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			pkt, ok, err := sess.Receive()
			if !ok {
				pterm.Warning.Printfln("session ended: %v", err)
				return
			}
			pterm.Printfln("%s peer: %s", pterm.Gray("<<"), string(pkt.Payload))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if ok, err := sess.Send([]byte(line), true); !ok {
			pterm.Error.Printfln("send failed: %v", err)
			break
		}
	}

	sess.Disconnect()
	<-done
}
