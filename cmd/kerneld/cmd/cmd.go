// Package cmd implements the kerneld CLI: boot-flag parsing and the
// `dump` integration-test/demo subcommand. The cobra.Command tree is
// built at package scope and wired up in SetupCLI, with flags registered
// from init().
package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/arctir/kerneld/internal/kernel"
)

const (
	heapSizeFlag      = "heap-size"
	timerIntervalFlag = "timer-interval"
	bootTicksFlag     = "boot-ticks"
	scriptFlag        = "script"
)

var kerneldCmd = &cobra.Command{
	Use:   "kerneld",
	Short: "A simulated RISC-V machine-mode kernel core.",
	Run:   runBoot,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Boot the kernel against a script, then print process-table and heap-accounting snapshots.",
	Run:   runDump,
}

func init() {
	for _, c := range []*cobra.Command{kerneldCmd, dumpCmd} {
		c.Flags().Uint64(heapSizeFlag, kernel.DefaultHeapSize, "Size, in bytes, of the simulated heap window.")
		c.Flags().Uint64(timerIntervalFlag, kernel.DefaultTimerInterval, "Timer-interrupt re-arm value, in ticks.")
		c.Flags().Int(bootTicksFlag, 0, "Number of scheduler ticks to run before returning (0 runs until the shell exits or its input runs out).")
		c.Flags().String(scriptFlag, "", "Path to a file of shell input to feed the console; without it the console has no input.")
	}
}

// SetupCLI constructs the cobra hierarchy for the kerneld CLI.
func SetupCLI() *cobra.Command {
	kerneldCmd.AddCommand(dumpCmd)
	return kerneldCmd
}

func runBoot(cmd *cobra.Command, args []string) {
	k, err := bootFromFlags(cmd)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("boot failed: %s", err))
	}
	ticks, _ := cmd.Flags().GetInt(bootTicksFlag)
	if err := k.Run(ticks); err != nil {
		outputErrorAndFail(fmt.Sprintf("run failed: %s", err))
	}
}

func runDump(cmd *cobra.Command, args []string) {
	k, err := bootFromFlags(cmd)
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("boot failed: %s", err))
	}
	ticks, _ := cmd.Flags().GetInt(bootTicksFlag)
	if err := k.Run(ticks); err != nil {
		outputErrorAndFail(fmt.Sprintf("run failed: %s", err))
	}

	fmt.Println()
	fmt.Println("process table:")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"PID", "STATE", "PRIORITY", "NAME"})
	for _, p := range k.Procs.Snapshot() {
		table.Append([]string{fmt.Sprint(p.PID), p.State.String(), fmt.Sprint(p.Priority), p.Name})
	}
	table.Render()

	fmt.Println()
	fmt.Println("heap stats:")
	stats := k.Alloc.Stats()
	statsTable := tablewriter.NewWriter(os.Stdout)
	statsTable.SetHeader([]string{"TOTAL", "ALLOCATED", "FREE", "BLOCKS"})
	statsTable.Append([]string{fmt.Sprint(stats.TotalHeap), fmt.Sprint(stats.Allocated), fmt.Sprint(stats.Free), fmt.Sprint(stats.Blocks)})
	statsTable.Render()
}

func bootFromFlags(cmd *cobra.Command) (*kernel.Kernel, error) {
	fs := cmd.Flags()
	heapSize, _ := fs.GetUint64(heapSizeFlag)
	timerInterval, _ := fs.GetUint64(timerIntervalFlag)
	scriptPath, _ := fs.GetString(scriptFlag)

	var script []byte
	if scriptPath != "" {
		data, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("failed reading script %s: %w", scriptPath, err)
		}
		script = data
	}

	return kernel.Boot(kernel.Config{
		HeapSize:      heapSize,
		TimerInterval: timerInterval,
		Script:        script,
	})
}

func outputErrorAndFail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
