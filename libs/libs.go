package libs

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	colo "github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func ScreenClear() {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", "cls")
	} else {
		cmd = exec.Command("clear")
	}
	cmd.Stdout = os.Stdout
	cmd.Run()
}

func ShowIfaces() []Ifaces {
	devs, _ := net.Interfaces()
	var ifacelist []Ifaces
	for _, iface := range devs {
		if len(iface.HardwareAddr) > 0 {
			ifacelist = append(ifacelist, Ifaces{Name: iface.Name, Mac: iface.HardwareAddr.String()})
		}
	}
	return ifacelist
}

func Rtexec(cmd *exec.Cmd) (string, bool) {
	output, err := cmd.CombinedOutput()
	if err != nil || strings.Contains(string(output), "fail") {
		return string(output), true
	}
	return string(output), false
}

func Loading(msg string, mt chan bool) {
	var idx int = 0
	var spinner [4]string = [4]string{"|", "/", "-", "\\"}
	for {
		select {
		case <-mt:
			fmt.Print("\r" + msg + " ... Done\n")
			return
		default:
			fmt.Print("\r" + msg + " [" + spinner[idx] + "] ... ")
			idx = (idx + 1) % 4
			time.Sleep(120 * time.Millisecond)
		}
	}
}

func SetupColors() Colors {
	colo.White("")
	var noColor bool = (os.Getenv("NO_COLOR") != "") || os.Getenv("TERM") == "dumb" ||
		(!isatty.IsTerminal(os.Stdout.Fd()))
	var color Colors
	if noColor {
		color = Colors{
			Red:       "",
			White:     "",
			Yellow:    "",
			Blue:      "",
			Purple:    "",
			Cyan:      "",
			Orange:    "",
			Green:     "",
			Lightblue: "",
			Null:      "",
		}
	} else {
		color = Colors{
			Red:       "\033[1;31m",
			White:     "\033[1;37m",
			Yellow:    "\033[38;5;227m",
			Blue:      "\033[1;34m",
			Purple:    "\033[1;35m",
			Cyan:      "\033[1;36m",
			Orange:    "\033[1;38;5;208m",
			Green:     "\033[1;32m",
			Lightblue: "\033[38;5;117",
			Null:      "\033[0m",
		}
	}
	fmt.Print(color.White)
	return color
}

func PrintLogo(color Colors) {
	ScreenClear()
	fmt.Println()
	fmt.Println(color.Green + "    _         _                     _   ")
	fmt.Println(color.Green + "   | |___ __ /_/_ _  __ __ _ ______| |_ " + color.Blue + "| ")
	fmt.Println(color.Green + "   |  _\\ V  V / | ' \\/ _/ _` (_-<  _| |" + color.Blue + " | Evil-Twin orchestrator")
	fmt.Println(color.Green + "    \\__|\\_/\\_/|_|_||_\\__\\__,_/__/\\__|\\_|" + color.Blue + "| Version 1.0.0")
	fmt.Println(color.Green + "                                        " + color.Blue + "| ")
	fmt.Println(color.Green + "                                        " + color.White + "\n")
}

func SignalError(color Colors, msg string) {
	defer os.Exit(1)
	fmt.Println("[" + color.Red + "ERROR" + color.White + "] " + msg)
	time.Sleep(800 * time.Millisecond)
}

func ChangeChannel(nameiface string, channel int) {
	Rtexec(exec.Command("iwconfig", nameiface, "channel", strconv.Itoa(channel)))
}

func ParseMac(mac string) net.HardwareAddr {
	parsedMac, _ := net.ParseMAC(mac)
	return parsedMac
}

func Fmac(in string) string {
	in = strings.ReplaceAll(in, ":", "")
	var r string = in + strings.Repeat(" ", 12)[len(in):]
	var sg []string
	for i := 0; i < len(r); i += 2 {
		if i+2 <= len(r) {
			sg = append(sg, r[i:i+2])
		}
	}
	return strings.ToUpper(strings.Join(sg, ":"))
}

func RandMac() string {
	var mac []string
	for i := 0; i < 6; i++ {
		mac = append(mac, fmt.Sprintf("%02x", rand.Intn(255)))
	}
	return strings.Join(mac, "")
}

// Decode an airodump/tshark hex-encoded SSID, pass cleartext through
func DecodeSSID(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 4 && len(raw)%2 == 0 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			var printable bool = true
			for _, b := range decoded {
				if b < 0x20 || b > 0x7e {
					printable = false
					break
				}
			}
			if printable {
				var allHexChars bool = true
				for _, c := range raw {
					if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
						allHexChars = false
						break
					}
				}
				if allHexChars {
					return string(decoded)
				}
			}
		}
	}
	return raw
}

func GetNoDuplicates(l []string) []string {
	if len(l) < 1 {
		return l
	}
	sort.Strings(l)
	var prev int = 1
	for curr := 1; curr < len(l); curr++ {
		if l[curr-1] != l[curr] {
			l[prev] = l[curr]
			prev++
		}
	}
	return l[:prev]
}

func SecondsToHMS(seconds int) string {
	var hours int = seconds / 3600
	seconds %= 3600
	var minutes int = seconds / 60
	seconds %= 60
	var parts []string
	if hours > 0 {
		parts = append(parts, strconv.Itoa(hours)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.Itoa(minutes)+"m")
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, strconv.Itoa(seconds)+"s")
	}
	return strings.Join(parts, " ")
}
