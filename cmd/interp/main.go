// cmd/interp/main.go
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/arl-lang/arl/internal/repl"
)

// Usage: interp [-n N] [script-file ...]. Args are hand-parsed; the
// only flag is the worker count, so the flag package buys nothing.
func main() {
	args := os.Args[1:]
	workers := 1
	var scripts []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "interp: -n requires a worker count")
				os.Exit(1)
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 1 {
				fmt.Fprintln(os.Stderr, "interp: invalid worker count", args[i+1])
				os.Exit(1)
			}
			workers = n
			i++
		case "-h", "--help":
			showUsage()
			return
		default:
			scripts = append(scripts, args[i])
		}
	}

	r := repl.New(workers)

	if len(scripts) > 0 {
		cont, err := r.RunScripts(scripts)
		if err != nil {
			fmt.Fprintln(os.Stderr, "interp:", err)
			os.Exit(1)
		}
		if !cont {
			os.Exit(0)
		}
	}

	os.Exit(r.Run(os.Stdin))
}

func showUsage() {
	fmt.Println("interp [-n N] [script-file ...]")
	fmt.Println("  -n N   number of worker threads for large kernels (default 1)")
	fmt.Println("  \\q \\l \\t \\w \\v \\? are REPL meta-commands")
}
