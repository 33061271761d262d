package libs

import (
	"fmt"
)

func PrintUsage() {
	fmt.Print(`Usage: twincast -i <interface> [options]

Options:
  -i  <iface>     probe/monitor interface (required)
  -r  <iface>     rogue AP interface (defaults to -i, single radio mode)
  -t  <essid>     clone this network unconditionally when discovered
  -w  <file>      wordlist for the cracking stage
  -f  <file>      YAML configuration file
  -m  <n>         minimum probed networks before moving on (default 10)
  -pw <seconds>   probe capture window (default 60)
  -dns            enable DHCP/DNS spoofing and credential harvesting
  -show-i         list usable wireless interfaces
  -nm-restart     restore the network stack and exit

Runtime keys: [s] status report, [q] graceful stop, CTRL-C abort.
`)
}
