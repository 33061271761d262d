package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"twincast/libs"
)

func readFile(path string) (string, error) {
	text, err := os.ReadFile(path)
	return string(text), err
}

// parseScanCSV turns the capture tool's CSV dump into networks with
// their associated clients. The file has an AP section and a Station
// section separated by the "Station MAC" header.
func parseScanCSV(text string) []libs.Network {
	var networks []libs.Network
	var byBssid map[string]int = make(map[string]int)
	var stationSection bool
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "Station MAC") {
			stationSection = true
			continue
		}
		if strings.HasPrefix(line, "BSSID") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if !stationSection {
			// BSSID, First seen, Last seen, channel, speed, privacy,
			// cipher, auth, power, beacons, IVs, LAN IP, ID-len, ESSID, Key
			if len(fields) < 14 || !libs.IsValidMAC(fields[0]) {
				continue
			}
			channel, _ := strconv.Atoi(fields[3])
			power, _ := strconv.Atoi(fields[8])
			var essid string = libs.DecodeSSID(fields[13])
			networks = append(networks, libs.Network{
				Bssid:   strings.ToUpper(fields[0]),
				Essid:   essid,
				Channel: channel,
				Power:   power,
				Seen:    time.Now(),
			})
			byBssid[strings.ToUpper(fields[0])] = len(networks) - 1
		} else {
			// Station MAC, First seen, Last seen, power, packets, BSSID, Probed ESSIDs
			if len(fields) < 6 || !libs.IsValidMAC(fields[0]) {
				continue
			}
			var apBssid string = strings.ToUpper(fields[5])
			if index, known := byBssid[apBssid]; known {
				networks[index].Clients = append(networks[index].Clients, strings.ToUpper(fields[0]))
			}
		}
	}
	return networks
}

// keepCloneTargets filters discovery output down to clonable networks:
// at least one client and a usable name. The "unassociated" pseudo
// network is reported but never cloned.
func keepCloneTargets(color libs.Colors, networks []libs.Network) []libs.Network {
	var targets []libs.Network
	for _, network := range networks {
		if strings.EqualFold(network.Essid, "unassociated") {
			if len(network.Clients) > 0 {
				libs.Log(color, strconv.Itoa(len(network.Clients))+" unassociated clients probing nearby")
			}
			continue
		}
		if len(network.Clients) == 0 || network.Essid == "" {
			continue
		}
		targets = append(targets, network)
	}
	return targets
}
