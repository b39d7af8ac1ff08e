// Command listenosc listens on a UDP port using this proxy's own OSC
// transport and prints every inbound message, flagging whether its
// address is one this proxy's remap core recognizes (§4.4's address
// table) or traffic it would silently ignore. Useful for checking a
// DAW's or controller's OSC wiring before pointing it at oscremapd.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mwicat/oscremap/logging"
	"github.com/mwicat/oscremap/oscio"
)

func main() {
	port := flag.Int("port", 0, "UDP port to listen for OSC messages")
	flag.Parse()

	if *port == 0 {
		fmt.Println("Usage: listenosc -port <port>")
		os.Exit(1)
	}

	device := oscio.NewDevice("0.0.0.0", *port, "0.0.0.0", 0, logging.DawOscIn, logging.DawOscOut)
	device.Bind("*", func(addr string, args []any) {
		tag := "unrecognized"
		if recognized(addr) {
			tag = "recognized"
		}
		fmt.Printf("[%s] %s %v\n", tag, addr, args)
	})

	fmt.Printf("Listening for OSC messages on 0.0.0.0:%s (UDP)...\n", strconv.Itoa(*port))
	if err := device.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "listenosc: %v\n", err)
		os.Exit(1)
	}
}

// recognized reports whether addr matches one of the fixed addresses
// or the "/fx/param/<T>/<attr>" shape RemapCore's handlers accept,
// per §4.4.1 and §4.4.2.
func recognized(addr string) bool {
	switch addr {
	case "/fx/name", "/fx/bypass", "/fx/openui", "/fx/learn", "/fx/clear":
		return true
	}
	if !strings.HasPrefix(addr, "/fx/param/") {
		return false
	}
	rest := strings.TrimPrefix(addr, "/fx/param/")
	segs := strings.Split(rest, "/")
	if len(segs) != 2 {
		return false
	}
	if _, err := strconv.Atoi(segs[0]); err != nil {
		return false
	}
	switch segs[1] {
	case "val", "name", "str":
		return true
	default:
		return false
	}
}
