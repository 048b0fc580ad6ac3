package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// repl evaluates one expression per line until EOF or "exit".
func (d *driver) repl(stdin io.Reader) int {
	fmt.Fprintln(d.stdout, "quill REPL (type 'exit' to quit)")

	machine := d.newVM()
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(d.stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(d.stdout)
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		// Errors are already reported; the session continues.
		if chunk, _ := d.compile(line); chunk != nil {
			d.execute(machine, "repl", chunk)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(d.stderr, "quill: %s\n", err)
		return exitIO
	}
	return exitOK
}
