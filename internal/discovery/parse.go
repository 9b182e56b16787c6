package discovery

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fieldListRe = regexp.MustCompile(`newFieldList\(\s*\(\)\s*=>\s*\[([^\]]*)\]`)
	fieldPairRe = regexp.MustCompile(`\{\s*no:\s*(\d+)\s*,\s*name:\s*"([^"]+)"`)
	modelEnumRe = regexp.MustCompile(`setEnumType\([^,]+,\s*"exa\.codeium_common_pb\.Model"\s*,\s*\[([^\]]*)\]`)
)

// ParseFieldMap scans minified extension source for the Metadata message's
// field list. The target is the first newFieldList block naming both
// api_key and ide_name; blocks that also name event_name belong to the
// telemetry message and are skipped. Names missing from the matched block
// keep their default numbers.
func ParseFieldMap(src string) (FieldMap, bool) {
	for _, match := range fieldListRe.FindAllStringSubmatch(src, -1) {
		block := match[1]
		if !strings.Contains(block, `"api_key"`) || !strings.Contains(block, `"ide_name"`) {
			continue
		}
		if strings.Contains(block, `"event_name"`) {
			continue
		}

		fm := DefaultFieldMap
		for _, pair := range fieldPairRe.FindAllStringSubmatch(block, -1) {
			no, err := strconv.ParseUint(pair[1], 10, 31)
			if err != nil || no == 0 {
				continue
			}
			switch pair[2] {
			case "api_key":
				fm.APIKey = uint32(no)
			case "ide_name":
				fm.IDEName = uint32(no)
			case "ide_version":
				fm.IDEVersion = uint32(no)
			case "extension_version":
				fm.ExtensionVersion = uint32(no)
			case "session_id":
				fm.SessionID = uint32(no)
			case "locale":
				fm.Locale = uint32(no)
			}
		}
		return fm, true
	}
	return DefaultFieldMap, false
}

// EnumEntry is one value of the vendor's Model enum.
type EnumEntry struct {
	No   uint32 `json:"no"`
	Name string `json:"name"`
}

// enumIgnoreMarkers filters enum values that are not chat models before
// presentation.
var enumIgnoreMarkers = []string{
	"TELEMETRY",
	"EMBEDDING",
	"TAB",
	"PREVIEW",
	"BYOK",
	"PRIVATE",
	"EXPERIMENTAL",
}

// ParseModelEnum extracts the exa.codeium_common_pb.Model enum values from
// minified extension source, dropping telemetry/embedding/tab/preview/
// BYOK/private/experimental entries.
func ParseModelEnum(src string) []EnumEntry {
	match := modelEnumRe.FindStringSubmatch(src)
	if match == nil {
		return nil
	}

	var entries []EnumEntry
pairs:
	for _, pair := range fieldPairRe.FindAllStringSubmatch(match[1], -1) {
		no, err := strconv.ParseUint(pair[1], 10, 31)
		if err != nil {
			continue
		}
		upper := strings.ToUpper(pair[2])
		for _, marker := range enumIgnoreMarkers {
			if strings.Contains(upper, marker) {
				continue pairs
			}
		}
		entries = append(entries, EnumEntry{No: uint32(no), Name: pair[2]})
	}
	return entries
}
