package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/session"
	"github.com/docchat/docchat/internal/storage"
	"github.com/docchat/docchat/internal/tui"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF for indexing",
	Long: `Upload a PDF for indexing.

Re-uploading a file with an unchanged name returns the already indexed
document without reprocessing it.

Examples:
  docchat upload ./report.pdf
  docchat upload ./report.pdf --chunk-size 1500`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		result, err := client.upload(cmd.Context(), args[0], chunkSize)
		if err != nil {
			return err
		}

		if !result.Reprocessed {
			printWarning("%s is already indexed (document %s)", result.Document.Name, result.Document.ID)
			return nil
		}
		printSuccess("Queued %s for processing (document %s)", result.Document.Name, result.Document.ID)
		return nil
	},
}

// --- documents ---

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/documents?limit=100")
		if err != nil {
			return err
		}
		var docs []storage.Document
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		if len(docs) == 0 {
			printWarning("No documents indexed yet. Use 'docchat upload' to add one.")
			return nil
		}
		for _, d := range docs {
			status := d.Status
			if d.Status == storage.DocStatusFailed && d.Error != "" {
				status = fmt.Sprintf("%s (%s)", d.Status, d.Error)
			}
			fmt.Printf("  %s  %s  %s  %d pages, %d chunks\n",
				colorize(colorBold, d.ID), d.Name, status, d.Pages, d.ChunkCount)
		}
		return nil
	},
}

var documentsRmCmd = &cobra.Command{
	Use:   "rm <document-id>",
	Short: "Delete a document and its index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/documents/"+args[0])
		if err != nil {
			return err
		}
		var out map[string]string
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}
		printSuccess("Deleted document %s", args[0])
		return nil
	},
}

func init() {
	uploadCmd.Flags().Int("chunk-size", 0, "chunk size in characters (500-2000, default from server)")
	documentsCmd.AddCommand(documentsRmCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-off question about a document",
	Long: `Ask a one-off question about a document.

Creates a throwaway session, waits for the answer, and prints it.

Examples:
  docchat ask "What is the refund policy?" --document 4f1c...
  docchat ask "Summarize chapter 2" --session 9a2b...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, _ := cmd.Flags().GetString("document")
		sessionID, _ := cmd.Flags().GetString("session")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if sessionID == "" {
			view, err := client.createSession(ctx)
			if err != nil {
				return err
			}
			sessionID = view.ID
		}
		if docID != "" {
			if err := client.attachDocument(ctx, sessionID, docID); err != nil {
				return err
			}
		}

		if err := client.Ask(ctx, sessionID, args[0]); err != nil {
			return err
		}

		answer, err := waitForAnswer(ctx, client, sessionID)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

// waitForAnswer polls the transcript until the daemon stops thinking, then
// returns the newest assistant entry.
func waitForAnswer(ctx context.Context, client *apiClient, sessionID string) (string, error) {
	for {
		msgs, thinking, err := client.Messages(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if !thinking {
			for i := len(msgs) - 1; i >= 0; i-- {
				if msgs[i].Role == "assistant" {
					return msgs[i].Content, nil
				}
			}
			return "", fmt.Errorf("no answer in transcript")
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for answer: %w", ctx.Err())
		case <-time.After(400 * time.Millisecond):
		}
	}
}

func init() {
	askCmd.Flags().String("document", "", "document ID to answer from")
	askCmd.Flags().String("session", "", "existing session ID to continue")
	askCmd.Flags().Duration("timeout", 2*time.Minute, "how long to wait for the answer")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, _ := cmd.Flags().GetString("document")
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		docName := ""

		if sessionID == "" {
			view, err := client.createSession(ctx)
			if err != nil {
				return err
			}
			sessionID = view.ID
		}
		if docID != "" {
			if err := client.attachDocument(ctx, sessionID, docID); err != nil {
				return err
			}
			resp, err := client.get(ctx, "/v1/documents/"+docID)
			if err == nil {
				var doc storage.Document
				if decodeJSON(resp, &doc) == nil {
					docName = doc.Name
				}
			}
		}

		model := tui.NewModel(client, sessionID, docName)
		p := tea.NewProgram(model, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	chatCmd.Flags().String("document", "", "document ID to chat about")
	chatCmd.Flags().String("session", "", "existing session ID to resume")
}

// --- clear ---

var clearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Clear a session's conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.Clear(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Conversation cleared")
		return nil
	},
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings <session-id>",
	Short: "Show or update session settings",
	Long: `Show or update session settings.

With no flags, prints the session's current settings. Flags patch
individual values; unset values are kept.

Examples:
  docchat settings 9a2b...
  docchat settings 9a2b... --temperature 0.2 --max-tokens 500`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		patch := session.SettingsPatch{}
		if cmd.Flags().Changed("temperature") {
			v, _ := cmd.Flags().GetFloat32("temperature")
			patch.Temperature = &v
		}
		if cmd.Flags().Changed("max-tokens") {
			v, _ := cmd.Flags().GetInt("max-tokens")
			patch.MaxTokens = &v
		}
		if cmd.Flags().Changed("chunk-size") {
			v, _ := cmd.Flags().GetInt("chunk-size")
			patch.ChunkSize = &v
		}

		var settings session.Settings
		if patch.Temperature == nil && patch.MaxTokens == nil && patch.ChunkSize == nil {
			resp, err := client.get(cmd.Context(), "/v1/sessions/"+args[0])
			if err != nil {
				return err
			}
			var view struct {
				Settings session.Settings `json:"settings"`
			}
			if err := decodeJSON(resp, &view); err != nil {
				return err
			}
			settings = view.Settings
		} else {
			resp, err := client.patch(cmd.Context(), "/v1/sessions/"+args[0]+"/settings", patch)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &settings); err != nil {
				return err
			}
		}

		printStatus("Temperature", "%.2f", settings.Temperature)
		printStatus("Max tokens", "%d", settings.MaxTokens)
		printStatus("Chunk size", "%d", settings.ChunkSize)
		return nil
	},
}

func init() {
	settingsCmd.Flags().Float32("temperature", 0, "response randomness (0-1)")
	settingsCmd.Flags().Int("max-tokens", 0, "maximum answer length in tokens")
	settingsCmd.Flags().Int("chunk-size", 0, "chunk size for future uploads in this session")
}
