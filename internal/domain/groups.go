package domain

import "fmt"

// GlobalGroup receives every program event regardless of machine.
const GlobalGroup = "programs"

// MachineGroup names the subscription channel for one machine.
func MachineGroup(machineNumber int) string {
	return fmt.Sprintf("machine:%d", machineNumber)
}
