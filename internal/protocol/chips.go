package protocol

import (
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/PakapolPolpinich/STM32-Web-Bootloader-via-ESP32/embedded"
)

// UnknownChip is returned by ChipName for product IDs missing from the table.
const UnknownChip = "unknown STM32"

type chipTable struct {
	Chips []struct {
		PID  uint16 `yaml:"pid"`
		Name string `yaml:"name"`
	} `yaml:"chips"`
}

var (
	chipsOnce sync.Once
	chipNames map[uint16]string
)

func loadChips() {
	chipNames = make(map[uint16]string)

	var table chipTable
	if err := yaml.Unmarshal(embedded.Chips(), &table); err != nil {
		return
	}
	for _, c := range table.Chips {
		chipNames[c.PID] = c.Name
	}
}

// ChipName returns human-readable name for a product ID
func ChipName(pid uint16) string {
	chipsOnce.Do(loadChips)
	if name, ok := chipNames[pid]; ok {
		return name
	}
	return UnknownChip
}
