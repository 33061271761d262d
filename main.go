package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"twincast/libs"
	"twincast/libs/confreader"
)

var color libs.Colors

// Collect all flags
func collect() (probeIface string, rogueIface string, conf confreader.Config) {
	var iface *string = flag.String("i", "?", "")
	var rogue *string = flag.String("r", "?", "")
	var target *string = flag.String("t", "?", "")
	var wordlist *string = flag.String("w", "?", "")
	var confFile *string = flag.String("f", "?", "")
	var minProbes *int = flag.Int("m", 0, "")
	var probeWindow *int = flag.Int("pw", 0, "")
	var dns *bool = flag.Bool("dns", false, "")
	var showiface *bool = flag.Bool("show-i", false, "")
	var nmrestart *bool = flag.Bool("nm-restart", false, "")

	flag.Usage = func() { libs.PrintUsage(); os.Exit(1) }
	flag.Parse()

	if !libs.RootCheck() {
		fmt.Println("Unrooted.")
		os.Exit(1)
	}

	switch true {
	case *showiface:
		var writer *tabwriter.Writer = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		var isPresent bool = false
		fmt.Fprintln(writer, "Interface\tHW-ADDR\tMonitor\t5GHz")
		for _, ifaceS := range libs.ShowIfaces() {
			if libs.MonSupportCheck(ifaceS.Name) {
				fmt.Fprintf(writer, "%s\t%s\t%t\t%t\n", ifaceS.Name, ifaceS.Mac, true, libs.G5Check(ifaceS.Name))
				isPresent = true
			}
		}
		if isPresent {
			writer.Flush()
			os.Exit(0)
		}
		fmt.Println("No valid interface found.")
		os.Exit(1)
	case *nmrestart:
		libs.Rtexec(exec.Command("bash", "-c", "killall dnsmasq hostapd"))
		if _, err := libs.Rtexec(exec.Command("bash", "-c", "iptables --flush && iptables -t nat --flush && rfkill unblock all && systemctl restart NetworkManager")); err {
			fmt.Println("Unable to restart Network Manager.")
			os.Exit(1)
		}
		fmt.Println("Network Manager restarted successful.")
		os.Exit(0)
	}

	if *iface == "?" {
		fmt.Print("Select an interface. If you want to see the available interfaces add -show-i parameter.\n\n")
		flag.Usage()
	}
	var ifaceFound bool
	for _, ifaceS := range libs.ShowIfaces() {
		if ifaceS.Name == *iface {
			ifaceFound = true
			break
		}
	}
	if !ifaceFound {
		fmt.Println("\nBad interface, if you want to see the available interfaces add -show-i parameter.")
		os.Exit(1)
	}

	var confPath string
	if libs.ReaderCheck(*confFile) {
		confPath = *confFile
	}
	conf, err := confreader.Load(confPath)
	if err != nil {
		fmt.Printf("Bad configuration file: %s\n\n", err)
		flag.Usage()
	}
	if *target != "?" {
		if !libs.IsValidESSID(*target) {
			fmt.Printf("ESSID %s is invalid (-t).\n\n", *target)
			flag.Usage()
		}
		conf.Target = *target
	}
	if libs.ReaderCheck(*wordlist) {
		conf.Wordlist = *wordlist
	}
	if *minProbes > 0 {
		conf.MinProbes = *minProbes
	}
	if *probeWindow > 0 {
		conf.ProbeWindowSeconds = *probeWindow
	}
	if *dns {
		conf.DNSSpoofing = true
	}
	probeIface = *iface
	if *rogue != "?" {
		rogueIface = *rogue
	}
	return probeIface, rogueIface, conf
}

func main() {
	probeIface, rogueIface, conf := collect()
	color = libs.SetupColors()
	libs.PrintLogo(color)

	if missing := libs.ToolsCheck(); len(missing) > 0 {
		libs.Error(color, "Install them with: apt install "+strings.Join(missing, " "))
		libs.SignalError(color, "Missing required tools: "+strings.Join(missing, ", "))
	}
	if broken := libs.ToolsWorkingCheck(); len(broken) > 0 {
		libs.SignalError(color, "Tools present but not working: "+strings.Join(broken, ", "))
	}
	if libs.AlreadyMon(probeIface) {
		libs.Log(color, "Interface "+probeIface+" is already in monitor mode")
	}

	session := newSession(color, conf, probeIface, rogueIface)
	startSignal(session)
	go statusKeys(session)

	var exitCode int
	if err := session.run(context.Background()); err != nil {
		exitCode = 1
	}
	session.cleanup.Cleanup()
	session.showFinalResults()
	os.Exit(exitCode)
}

// startSignal restores the network stack on CTRL-C / SIGTERM
func startSignal(session *karmaSession) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		fmt.Println()
		libs.Warning(color, "Interrupted, restoring network state")
		session.cleanup.Cleanup()
		session.showFinalResults()
		os.Exit(130)
	}()
}
