package envinfo

import (
	"fmt"
	"strconv"
	"strings"
)

// Commands whose output the parsers below understand.
const (
	MemoryCommand  = "free -m"
	StorageCommand = "df -m /"
)

// ParseMemory reads `free -m` output. The second line is the Mem row:
// fields[1] is total, fields[6] is available.
func ParseMemory(out string) (total, available, running float64, err error) {
	fields, err := rowFields(out, "free -m", 7)
	if err != nil {
		return 0, 0, 0, err
	}

	total, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("free -m total column: %w", err)
	}
	available, err = strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("free -m available column: %w", err)
	}
	return total, available, total - available, nil
}

// ParseStorage reads `df -m /` output. The second line is the root
// filesystem row: fields[1] is total, fields[3] is available.
func ParseStorage(out string) (total, available float64, err error) {
	fields, err := rowFields(out, "df -m", 4)
	if err != nil {
		return 0, 0, err
	}

	total, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("df -m total column: %w", err)
	}
	available, err = strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("df -m available column: %w", err)
	}
	return total, available, nil
}

// ParseSnapshot assembles a full snapshot from both command outputs.
func ParseSnapshot(memOut, storageOut string) (Snapshot, error) {
	memTotal, memAvail, running, err := ParseMemory(memOut)
	if err != nil {
		return Snapshot{}, err
	}
	stTotal, stAvail, err := ParseStorage(storageOut)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		TotalSystemMemory:     memTotal,
		AvailableSystemMemory: memAvail,
		RunningMemory:         running,
		TotalStorage:          stTotal,
		AvailableStorage:      stAvail,
	}, nil
}

func rowFields(out, cmd string, minFields int) ([]string, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("%s output too short: %d line(s)", cmd, len(lines))
	}
	fields := strings.Fields(lines[1])
	if len(fields) < minFields {
		return nil, fmt.Errorf("%s row has %d fields, want at least %d", cmd, len(fields), minFields)
	}
	return fields, nil
}
