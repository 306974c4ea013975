package aggregate

import (
	"github.com/shirou/gopsutil/v4/disk"
)

// VolumeUsage describes the volume backing a scan root.
type VolumeUsage struct {
	Root        string  `json:"root"`
	Mountpoint  string  `json:"mountpoint"`
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// Volumes resolves usage for each root. Roots whose volume cannot be
// queried are simply omitted; volume stats are advisory reporting, not
// a scan precondition.
func Volumes(roots []string) []VolumeUsage {
	var out []VolumeUsage
	seen := map[string]struct{}{}
	for _, root := range roots {
		usage, err := disk.Usage(root)
		if err != nil {
			continue
		}
		if _, dup := seen[usage.Path]; dup {
			continue
		}
		seen[usage.Path] = struct{}{}
		out = append(out, VolumeUsage{
			Root:        root,
			Mountpoint:  usage.Path,
			TotalBytes:  usage.Total,
			UsedBytes:   usage.Used,
			FreeBytes:   usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}
	return out
}
