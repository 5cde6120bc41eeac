package telemetry

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DedupeSensorIDs drops empty and repeated identities, keeping first-seen order.
func DedupeSensorIDs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, list := range lists {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// GenerateSensorIDs creates count identities under prefix.
func GenerateSensorIDs(prefix string, count int) []string {
	if prefix == "" {
		prefix = "SENSOR"
	}
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		// Index plus a short UUID keeps generated IDs unique across restarts.
		ids = append(ids, fmt.Sprintf("%s-%d-%s", prefix, i, uuid.New().String()[:8]))
	}
	return ids
}
