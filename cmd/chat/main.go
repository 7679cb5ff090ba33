package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"legal-assistant-be/pkg/assistant"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	infoColor      = color.New(color.FgYellow)
)

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("ASSISTANT_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := assistant.NewClient(baseURL, nil)
	controller := client.NewChatController(func(ev assistant.StreamEvent) {
		switch ev.Type {
		case assistant.EventContentDelta:
			assistantColor.Print(ev.Content)
		case assistant.EventDone:
			fmt.Println()
		case assistant.EventError:
			errorColor.Printf("\n[error] %s\n", ev.Message)
		}
	})

	// Ctrl-C cancels the in-flight turn instead of killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			controller.Cancel()
		}
	}()

	infoColor.Printf("Connected to %s\n", baseURL)
	infoColor.Println("Commands: /upload <file...>  /docs  /delete <id>  /regen  /clear  /quit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(client, controller, line); quit {
				return
			}
			continue
		}

		if err := controller.Send(context.Background(), line); err != nil {
			reportTurnError(err)
		}
	}
}

func runCommand(client *assistant.Client, controller *assistant.ChatController, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/upload":
		if len(fields) < 2 {
			errorColor.Println("usage: /upload <file> [file...]")
			return false
		}
		uploadFiles(client, fields[1:])

	case "/docs":
		docs, err := client.Registry.List(context.Background())
		if err != nil {
			errorColor.Printf("list failed: %v\n", err)
			return false
		}
		if len(docs) == 0 {
			infoColor.Println("No documents uploaded.")
			return false
		}
		for _, doc := range docs {
			fmt.Printf("  %s  %s (%d bytes, %d clauses)\n", doc.Id, doc.Name, doc.SizeBytes, len(doc.Clauses))
		}

	case "/delete":
		if len(fields) != 2 {
			errorColor.Println("usage: /delete <document-id>")
			return false
		}
		if err := client.Registry.Delete(context.Background(), fields[1]); err != nil {
			errorColor.Printf("delete failed: %v\n", err)
			return false
		}
		infoColor.Println("Document removed.")

	case "/regen":
		if err := controller.Regenerate(context.Background()); err != nil {
			reportTurnError(err)
		}

	case "/clear":
		if err := controller.ClearChat(); err != nil {
			errorColor.Printf("clear failed: %v\n", err)
			return false
		}
		if err := client.Registry.ClearAll(context.Background()); err != nil {
			errorColor.Printf("clear failed: %v\n", err)
			return false
		}
		infoColor.Println("Conversation and documents cleared.")

	default:
		errorColor.Printf("unknown command: %s\n", fields[0])
	}
	return false
}

func uploadFiles(client *assistant.Client, paths []string) {
	var files []assistant.UploadFile
	var handles []*os.File
	defer func() {
		for _, f := range handles {
			f.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			errorColor.Printf("cannot open %s: %v\n", path, err)
			return
		}
		handles = append(handles, f)
		files = append(files, assistant.UploadFile{Name: filepath.Base(path), Content: f})
	}

	docs, err := client.Registry.Upload(context.Background(), files...)
	if err != nil {
		var rejected *assistant.UploadRejectedError
		if errors.As(err, &rejected) {
			errorColor.Printf("upload rejected: %s\n", rejected.Reason)
			return
		}
		errorColor.Printf("upload failed: %v\n", err)
		return
	}

	for _, doc := range docs {
		infoColor.Printf("Uploaded %s (%d clauses found)\n", doc.Name, len(doc.Clauses))
	}
}

func reportTurnError(err error) {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		errorColor.Println("Message is empty.")
	case errors.Is(err, assistant.ErrTurnInProgress):
		errorColor.Println("A response is still streaming; wait or press Ctrl-C.")
	case errors.Is(err, assistant.ErrNoUserMessage):
		errorColor.Println("Nothing to regenerate yet.")
	case errors.Is(err, assistant.ErrSessionExpired):
		errorColor.Println("Session expired; a new one will be created on the next message.")
	case errors.Is(err, context.Canceled):
		// The cancellation error frame was already printed by the handler.
	default:
		// Stream-level failures are surfaced through the handler as error
		// frames; this catches pre-stream failures only.
		var modelErr *assistant.ModelError
		if !errors.As(err, &modelErr) {
			errorColor.Printf("turn failed: %v\n", err)
		}
	}
}
