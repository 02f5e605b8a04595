package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

// runChat is a terminal loop over Ask. Each question is answered on its
// own; no history carries across questions.
func runChat(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	chunks, dim := a.query.Stats()
	fmt.Fprintln(out, boldGreen("Research Paper Assistant"))
	fmt.Fprintf(out, "Source: %s (%d chunks, dimension %d)\n", boldCyan(a.cfg.Source), chunks, dim)
	fmt.Fprintln(out, "Type your question and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer := a.query.Ask(ctx, question)
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(out, "%s%s\n\n", boldCyan("Assistant: "), answer)
	}
	return scanner.Err()
}

func printSearch(ctx context.Context, a *app, query string, out io.Writer) error {
	results, err := a.query.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%s %s\n", boldCyan(fmt.Sprintf("#%d", i+1)),
			faint(fmt.Sprintf("score=%.4f page=%d chunk=%d", r.Score, r.Chunk.Page, r.Chunk.Index)))
		fmt.Fprintln(out, r.Chunk.Content)
		fmt.Fprintln(out)
	}
	return nil
}
