package remote

import "time"

// The remote store emits timestamps as "2006-01-02 15:04:05.000Z"; newer
// versions use RFC 3339. Accept both, fall back to zero time on garbage.
var storeTimeLayouts = []string{
	"2006-01-02 15:04:05.000Z",
	"2006-01-02 15:04:05Z",
	time.RFC3339Nano,
	time.RFC3339,
}

func parseStoreTime(raw string) time.Time {
	for _, layout := range storeTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
