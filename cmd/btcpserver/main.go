// Command btcpserver receives a file transferred by a bTCP client.
//
// Usage:
//
//	btcpserver --window 5 --output output.txt
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
	windowSize = flag.Int("window", btcp.DefaultWindowSize, "advertised receive window")
	outputPath = flag.String("output", "output.txt", "path to write the received file")
	localAddr  = flag.String("laddr", fmt.Sprintf("%s:%d", btcp.DefaultServerIP, btcp.DefaultServerPort), "local UDP address")
	remoteAddr = flag.String("raddr", fmt.Sprintf("%s:%d", btcp.DefaultClientIP, btcp.DefaultClientPort), "client UDP address")
	verbose    = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()

	level := logrus.InfoLevel
	if *verbose {
		level = logrus.DebugLevel
	}
	log := btcp.NewLogger(level)

	if *windowSize < 0 || *windowSize > 0xff {
		log.Fatal("btcpserver: --window must fit in a byte")
	}

	la, err := net.ResolveUDPAddr("udp4", *localAddr)
	if err != nil {
		log.WithError(err).Fatal("btcpserver: invalid local address")
	}
	ra, err := net.ResolveUDPAddr("udp4", *remoteAddr)
	if err != nil {
		log.WithError(err).Fatal("btcpserver: invalid remote address")
	}

	sub, err := btcp.NewUDPSubstrate(la, ra, log)
	if err != nil {
		log.WithError(err).Fatal("btcpserver: failed to open substrate")
	}

	server := btcp.NewServerSocket(sub, uint8(*windowSize), log)
	defer server.Close()

	server.Accept()
	data := server.Recv()

	if err := os.WriteFile(*outputPath, data, 0o644); err != nil {
		log.WithError(err).Fatal("btcpserver: failed to write output file")
	}

	log.WithField("bytes", len(data)).Info("btcpserver: wrote output file")
	os.Exit(0)
}
