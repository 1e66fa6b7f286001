// Command btcpclient transfers a file to a bTCP server.
//
// Usage:
//
//	btcpclient --timeout 100 --input input.txt
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/kvanneman/btcp/pkg/btcp"
	"github.com/sirupsen/logrus"
)

var (
	timeoutMillis = flag.Int("timeout", 100, "per-segment retry timeout, in milliseconds")
	inputPath     = flag.String("input", "input.txt", "file to transfer")
	localAddr     = flag.String("laddr", fmt.Sprintf("%s:%d", btcp.DefaultClientIP, btcp.DefaultClientPort), "local UDP address")
	remoteAddr    = flag.String("raddr", fmt.Sprintf("%s:%d", btcp.DefaultServerIP, btcp.DefaultServerPort), "server UDP address")
	verbose       = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()

	level := logrus.InfoLevel
	if *verbose {
		level = logrus.DebugLevel
	}
	log := btcp.NewLogger(level)

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.WithError(err).Fatal("btcpclient: failed to read input file")
	}

	la, err := net.ResolveUDPAddr("udp4", *localAddr)
	if err != nil {
		log.WithError(err).Fatal("btcpclient: invalid local address")
	}
	ra, err := net.ResolveUDPAddr("udp4", *remoteAddr)
	if err != nil {
		log.WithError(err).Fatal("btcpclient: invalid remote address")
	}

	sub, err := btcp.NewUDPSubstrate(la, ra, log)
	if err != nil {
		log.WithError(err).Fatal("btcpclient: failed to open substrate")
	}

	client := btcp.NewClientSocket(sub, *timeoutMillis, log)
	defer client.Close()

	if !client.Connect() {
		log.Error("btcpclient: connect failed")
		os.Exit(1)
	}

	if !client.Send(data) {
		log.Warn("btcpclient: send did not complete reliably")
	}

	if !client.Disconnect() {
		log.Error("btcpclient: disconnect failed")
		os.Exit(1)
	}

	log.WithField("bytes", len(data)).Info("btcpclient: transfer complete")
	os.Exit(0)
}
