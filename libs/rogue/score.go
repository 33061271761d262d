package rogue

import (
	"strings"

	"twincast/libs"
)

// SSID keywords that suggest a default-named home or office router
var commonKeywords = []string{"home", "wifi", "internet", "router", "network", "linksys", "netgear", "tp-link"}

// Score ranks a network as a cloning candidate: clients dominate,
// default-looking names and strong signal break near-ties.
func Score(network libs.Network) int {
	var score int = len(network.Clients) * 10
	var lower string = strings.ToLower(network.Essid)
	for _, keyword := range commonKeywords {
		if strings.Contains(lower, keyword) {
			score += 5
			break
		}
	}
	if network.Power > -50 {
		score += 3
	} else if network.Power > -70 {
		score += 1
	}
	return score
}

// SelectTarget picks the network to clone. An explicit target name wins
// unconditionally when present; otherwise highest score, first seen on ties.
func SelectTarget(networks []libs.Network, explicit string) (libs.Network, bool) {
	if len(networks) == 0 {
		return libs.Network{}, false
	}
	if explicit != "" {
		for _, network := range networks {
			if network.Essid == explicit {
				return network, true
			}
		}
	}
	var best libs.Network = networks[0]
	var bestScore int = Score(best)
	for _, network := range networks[1:] {
		if s := Score(network); s > bestScore {
			best = network
			bestScore = s
		}
	}
	return best, true
}
