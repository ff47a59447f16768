package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/glia-ml/glia/backend/webgpu"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report available backends and CPU features",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("platform:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("cores:     %d\n", runtime.NumCPU())
		if runtime.GOARCH == "amd64" {
			fmt.Printf("avx2:      %v\n", cpu.X86.HasAVX2)
		}

		fmt.Printf("cpu:       ok\n")
		if webgpu.IsAvailable() {
			fmt.Printf("webgpu:    ok\n")
		} else {
			fmt.Printf("webgpu:    unavailable\n")
		}
	},
}
