package main

import (
	"bufio"
	"log"
	"os"
	"strings"

	"github.com/sweeney/home-safety-sensor/internal/status"
)

// networkEnvFile is where pi-helper records the board's network state.
const networkEnvFile = "/run/pi-helper.env"

// Variable names used by pi-helper, both in its file and when exported
// into the service environment.
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// loadNetworkInfo merges pi-helper's file at path (skipped when path is
// empty or unreadable) with the process environment, which wins. The
// result is nil when no NETWORK_STATUS is known from either source.
func loadNetworkInfo(path string) *status.NetworkInfo {
	vars := map[string]string{}
	if path != "" {
		if err := readEnvFile(path, vars); err != nil && !os.IsNotExist(err) {
			log.Printf("network: %v", err)
		}
	}
	for _, name := range []string{
		envNetworkType, envNetworkIP, envNetworkStatus,
		envNetworkGateway, envNetworkWifiStatus, envNetworkWifiSSID,
	} {
		if v, ok := os.LookupEnv(name); ok {
			vars[name] = v
		}
	}

	if vars[envNetworkStatus] == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       vars[envNetworkType],
		IP:         vars[envNetworkIP],
		Status:     vars[envNetworkStatus],
		Gateway:    vars[envNetworkGateway],
		WifiStatus: vars[envNetworkWifiStatus],
		SSID:       vars[envNetworkWifiSSID],
	}
}

// readEnvFile parses KEY=VALUE lines into vars. Blank lines, comments and
// an "export " prefix are tolerated; surrounding quotes are stripped.
func readEnvFile(path string, vars map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		vars[strings.TrimSpace(key)] = value
	}
	return sc.Err()
}
