package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"askyourdocs-client/internal/bootstrap"
	"askyourdocs-client/internal/config"
	"askyourdocs-client/internal/constant"
	"askyourdocs-client/internal/controller"
	"askyourdocs-client/internal/entity"
	"askyourdocs-client/internal/gateway"

	"github.com/fatih/color"
)

var (
	botColor    = color.New(color.FgCyan)
	userColor   = color.New(color.FgGreen)
	citeColor   = color.New(color.FgYellow)
	promptColor = color.New(color.FgWhite, color.Bold)
	errColor    = color.New(color.FgRed)
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	stdin := bufio.NewReader(os.Stdin)

	var lastDraft *controller.FeedbackDraft

	opts := controller.Options{
		OnFeedbackPrompt: func(draft controller.FeedbackDraft) {
			lastDraft = &draft
		},
		Confirm: func() bool {
			promptColor.Print("Clear the whole conversation? [y/N] ")
			line, _ := stdin.ReadString('\n')
			return strings.EqualFold(strings.TrimSpace(line), "y")
		},
		OnCitation: func(view controller.CitationView) {
			citeColor.Printf("\n%s (%s)\n", view.Name, view.URL)
			for _, excerpt := range view.Excerpts {
				citeColor.Printf("  > %s\n", excerpt)
			}
		},
	}

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg, opts)
	ctl := container.SessionController
	defer ctl.Stop()

	// 3. Re-render on transcript changes from the background event loop
	changes, err := container.PubSub.Subscribe(context.Background(), constant.TranscriptChangedTopic)
	if err != nil {
		log.Fatalf("Unable to subscribe to transcript events: %v", err)
	}
	go func() {
		lastSeen := 0
		for msg := range changes {
			var event struct {
				Length int `json:"length"`
			}
			if err := json.Unmarshal(msg.Payload, &event); err == nil {
				renderNewEntries(ctl, lastSeen, event.Length)
				lastSeen = event.Length
			}
			msg.Ack()
		}
	}()

	// 4. Start Session
	ctl.Start(context.Background())
	if name := container.Credentials.GivenName(); name != "" {
		promptColor.Printf("Welcome back, %s.\n", name)
	}

	// 5. REPL
	app := &chatApp{stdin: stdin, ctl: ctl, container: container, lastDraft: &lastDraft}
	app.repl()
}

type chatApp struct {
	stdin     *bufio.Reader
	ctl       controller.ISessionController
	container *bootstrap.Container
	lastDraft **controller.FeedbackDraft
}

func (a *chatApp) repl() {
	stdin, ctl, container := a.stdin, a.ctl, a.container
	for {
		promptColor.Print("> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "/quit":
			return
		case line == "/clear":
			if ctl.Clear(context.Background()) {
				promptColor.Println("Conversation cleared.")
				for _, entry := range ctl.Transcript() {
					printEntry(entry)
				}
			}
		case line == "/docs":
			listDocuments(container.DocumentGateway)
		case strings.HasPrefix(line, "/rate "):
			a.handleRate(line)
		case strings.HasPrefix(line, "/doc "):
			handleCitation(ctl, line)
		case strings.HasPrefix(line, "/upload "):
			handleUpload(container.DocumentGateway, strings.TrimPrefix(line, "/upload "))
		case strings.HasPrefix(line, "/delete "):
			handleDelete(container.DocumentGateway, strings.TrimPrefix(line, "/delete "))
		case strings.HasPrefix(line, "/"):
			errColor.Println("Commands: /clear /docs /rate <id> <up|down> /doc <id> <source> /upload <path> /delete <id> /quit")
		default:
			if err := ctl.Submit(context.Background(), line); err != nil {
				errColor.Printf("Send failed: %v\n", err)
			}
		}
	}
}

func renderNewEntries(ctl controller.ISessionController, from, to int) {
	entries := ctl.Transcript()
	if to > len(entries) {
		to = len(entries)
	}
	for i := from; i < to; i++ {
		printEntry(entries[i])
	}
}

func printEntry(entry entity.TranscriptEntry) {
	if entry.Role == entity.RoleUser {
		userColor.Printf("[%d] you: %s\n", entry.Id, entry.Text)
		return
	}
	botColor.Printf("[%d] bot: %s\n", entry.Id, entry.Text)
	for _, citation := range dedupedCitations(entry) {
		citeColor.Printf("      [source %s] %s\n", citation.SourceId, citation.Name)
	}
}

func dedupedCitations(entry entity.TranscriptEntry) []entity.Citation {
	seen := make(map[string]bool, len(entry.Citations))
	out := make([]entity.Citation, 0, len(entry.Citations))
	for _, citation := range entry.Citations {
		if seen[citation.SourceId] {
			continue
		}
		seen[citation.SourceId] = true
		out = append(out, citation)
	}
	return out
}

func (a *chatApp) handleRate(line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		errColor.Println("Usage: /rate <entry id> <up|down>")
		return
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		errColor.Println("Entry id must be a number")
		return
	}
	sentiment := entity.SentimentPositive
	if fields[2] == "down" {
		sentiment = entity.SentimentNegative
	}

	if err := a.ctl.Rate(context.Background(), id, sentiment); err != nil {
		errColor.Printf("Cannot rate that entry: %v\n", err)
		return
	}

	draft := *a.lastDraft
	if draft == nil {
		return
	}
	promptColor.Print("Add a comment (enter to skip): ")
	comment, _ := a.stdin.ReadString('\n')

	a.ctl.SendFeedback(context.Background(), *draft, strings.TrimSpace(comment))
	promptColor.Println("Thanks for the feedback.")
}

func handleCitation(ctl controller.ISessionController, line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		errColor.Println("Usage: /doc <entry id> <source id>")
		return
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		errColor.Println("Entry id must be a number")
		return
	}
	if err := ctl.OpenCitation(context.Background(), id, fields[2]); err != nil {
		errColor.Printf("Cannot open that source: %v\n", err)
	}
}

func listDocuments(docs gateway.IDocumentGateway) {
	list, err := docs.List(context.Background())
	if err != nil {
		errColor.Printf("Cannot list documents: %v\n", err)
		return
	}
	if len(list) == 0 {
		promptColor.Println("No documents uploaded yet.")
		return
	}
	for _, doc := range list {
		fmt.Printf("  %s  %s\n", doc.Id, doc.Name)
	}
}

func handleUpload(docs gateway.IDocumentGateway, path string) {
	path = strings.TrimSpace(path)
	file, err := os.Open(path)
	if err != nil {
		errColor.Printf("Cannot open %s: %v\n", path, err)
		return
	}
	defer file.Close()

	name := filepath.Base(path)
	if err := docs.Upload(context.Background(), name, file); err != nil {
		errColor.Printf("Upload failed: %v\n", err)
		return
	}
	promptColor.Printf("Uploaded %s\n", name)
}

func handleDelete(docs gateway.IDocumentGateway, id string) {
	if err := docs.Delete(context.Background(), strings.TrimSpace(id)); err != nil {
		errColor.Printf("Delete failed: %v\n", err)
		return
	}
	promptColor.Println("Deleted.")
}
