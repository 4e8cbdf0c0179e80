// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package brocade

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/hpe-storage/fc-zone-libs/model"
)

// Fabric OS prints diagnostics inline rather than through exit codes; these markers cover the
// zoning command family
var cliErrorMarkers = []string{
	"invalid",
	"error",
	"not owner",
	"not permitted",
	"transaction commit failed",
}

func scanForCLIError(output string) string {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		for _, marker := range cliErrorMarkers {
			if strings.Contains(lower, marker) {
				return line
			}
		}
	}
	return ""
}

// parseCfgShow extracts the effective configuration section of cfgshow output.  Example:
//
//	Defined configuration:
//	 cfg:   prod_cfg    zone_a; zone_b
//	 zone:  zone_a      10:00:8c:7c:ff:52:3b:01; 20:24:00:02:ac:00:0a:50
//	Effective configuration:
//	 cfg:   prod_cfg
//	 zone:  zone_a
//	                10:00:8c:7c:ff:52:3b:01
//	                20:24:00:02:ac:00:0a:50
//
// "no configuration in effect" yields an empty snapshot.
func parseCfgShow(output string) *model.ActiveZoneSet {
	azs := &model.ActiveZoneSet{Zones: make(map[string][]string)}

	inEffective := false
	currentZone := ""
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Defined configuration:"):
			inEffective = false
		case strings.HasPrefix(line, "Effective configuration:"):
			inEffective = true
		case !inEffective || line == "":
			// skip
		case strings.Contains(strings.ToLower(line), "no configuration in effect"):
			return azs
		case strings.HasPrefix(line, "cfg:"):
			if fields := strings.Fields(strings.TrimPrefix(line, "cfg:")); len(fields) > 0 {
				azs.Name = fields[0]
			}
			currentZone = ""
		case strings.HasPrefix(line, "zone:"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "zone:"))
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				continue
			}
			currentZone = fields[0]
			azs.Zones[currentZone] = appendMembers(azs.Zones[currentZone], strings.TrimPrefix(rest, currentZone))
		case currentZone != "":
			azs.Zones[currentZone] = appendMembers(azs.Zones[currentZone], line)
		}
	}
	return azs
}

func appendMembers(members []string, raw string) []string {
	for _, member := range strings.Split(raw, ";") {
		member = strings.TrimSpace(member)
		if member != "" && model.IsWwn(member) {
			members = append(members, model.ColonWwn(member))
		}
	}
	return members
}

// parseNameserver extracts port WWNs from nsshow/nscamshow output.  Device entries look like:
//
//	 N    051e00;    2,3; 20:24:00:02:ac:00:0a:50; 20:24:00:02:ac:00:0a:00; na
//	    FC4s: FCP
//
// The third semicolon-separated field is the port WWN.
func parseNameserver(output string) []string {
	var wwns []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Split(line, ";")
		if len(fields) < 3 {
			continue
		}
		kind := strings.Fields(fields[0])
		if len(kind) == 0 {
			continue
		}
		switch kind[0] {
		case "N", "NL", "U":
		default:
			continue
		}
		wwn := strings.TrimSpace(fields[2])
		if model.IsWwn(wwn) {
			wwns = append(wwns, model.ColonWwn(wwn))
		}
	}
	return wwns
}

// parseFirmwareVersion pulls major.minor out of version output, e.g. "Fabric OS:  v7.4.2a"
func parseFirmwareVersion(output string) (major, minor int, found bool) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Fabric OS:") {
			continue
		}
		version := strings.TrimSpace(strings.TrimPrefix(line, "Fabric OS:"))
		version = strings.TrimPrefix(version, "v")
		parts := strings.Split(version, ".")
		if len(parts) < 2 {
			return 0, 0, false
		}
		major, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, 0, false
		}
		// the patch field may carry a letter suffix; minor never does
		minor, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, false
		}
		return major, minor, true
	}
	return 0, 0, false
}
