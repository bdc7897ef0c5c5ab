// Count available CPUs based on affinity

//go:build !linux

package minitimer_internal

import (
	"runtime"

	"github.com/tklauser/numcpus"
)

func GetAvailableCPUCount() int {
	count, err := numcpus.GetOnline()
	if err != nil || count <= 0 {
		return runtime.NumCPU()
	}
	return count
}
