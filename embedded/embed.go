package embedded

import (
	_ "embed"
)

//go:embed chips.yaml
var chips []byte

// Chips returns the embedded STM32 product ID table in YAML form.
func Chips() []byte {
	return chips
}
