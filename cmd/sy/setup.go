package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/studysync/studysync/internal/config"
	"github.com/studysync/studysync/internal/notion"
	"github.com/studysync/studysync/internal/ui"
)

var setupCmd = &cobra.Command{
	Use:     "setup",
	GroupID: "sync",
	Short:   "Check the Notion token and both databases",
	Long: `Check that the token works and that both databases have the properties
sync writes. Missing or mistyped properties are listed; optional ones are
left out of payloads, required ones make every push fail validation.

With --parent, a database that is not configured or no longer exists is
created under that page and its id is saved to the config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		parentFlag, _ := cmd.Flags().GetString("parent")

		var parent string
		if parentFlag != "" {
			id, err := parsePageID(parentFlag)
			if err != nil {
				FatalError("%v", err)
			}
			parent = id
		}

		ctx, cancel := signalContext()
		defer cancel()

		var client *notion.Client
		if parent != "" {
			client = newTokenClient()
		} else {
			client = newNotionClient()
		}
		schemas := loadSchemas()

		me, err := client.Me(ctx)
		if err != nil {
			FatalError("token check failed: %v", err)
		}
		fmt.Printf("%s Authenticated as %s (%s)\n", ui.RenderPass("✓"), me.Name, me.Type)

		ok := true
		created := map[string]string{}
		for _, target := range []struct {
			label  string
			id     string
			schema *notion.Schema
		}{
			{"Tasks", cfg.Notion.TasksDatabaseID, schemas.Tasks},
			{"Events", cfg.Notion.EventsDatabaseID, schemas.Events},
		} {
			var db *notion.Database
			err = nil
			if target.id != "" {
				db, err = client.RetrieveDatabase(ctx, target.id)
			}
			missing := target.id == "" || errors.Is(err, notion.ErrNotFound)

			switch {
			case missing && parent != "":
				db, err = createDatabase(ctx, client, parent, target.label, target.schema)
				if err != nil {
					FatalError("%v", err)
				}
				created[target.label] = db.ID
				continue
			case target.id == "":
				fmt.Printf("%s %s database: not configured (use --parent to create it)\n", ui.RenderWarn("!"), target.label)
				ok = false
				continue
			case err != nil:
				fmt.Printf("%s %s database %s: %v\n", ui.RenderFail("✗"), target.label, target.id, err)
				ok = false
				continue
			}

			mismatches := target.schema.Check(db)
			if len(mismatches) == 0 {
				fmt.Printf("%s %s database %q matches\n", ui.RenderPass("✓"), target.label, db.Name())
				continue
			}
			fmt.Printf("%s %s database %q:\n", ui.RenderWarn("!"), target.label, db.Name())
			for _, m := range mismatches {
				line := "    " + m.String()
				if slices.Contains(target.schema.Required, m.Property) {
					line += ui.RenderFail(" (required)")
					ok = false
				}
				fmt.Println(line)
			}
		}

		if len(created) > 0 {
			cfgPath := configPath
			if cfgPath == "" {
				cfgPath = config.DefaultConfigPath()
			}
			err := config.UpdateFile(cfgPath, func(c *config.Config) {
				if id, ok := created["Tasks"]; ok {
					c.Notion.TasksDatabaseID = id
				}
				if id, ok := created["Events"]; ok {
					c.Notion.EventsDatabaseID = id
				}
			})
			if err != nil {
				FatalError("databases created but saving their ids failed: %v (ids: %v)", err, created)
			}
			fmt.Printf("%s Saved database ids to %s\n", ui.RenderPass("✓"), cfgPath)
		}
		if !ok {
			os.Exit(1)
		}
	},
}

func createDatabase(ctx context.Context, client *notion.Client, parent, label string, schema *notion.Schema) (*notion.Database, error) {
	title := "Sync - " + label
	db, err := client.CreateDatabase(ctx, parent, title, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s database: %w", label, err)
	}
	fmt.Printf("%s Created %s database %q (%s)\n", ui.RenderPass("✓"), label, title, db.ID)
	return db, nil
}

// parsePageID accepts a page id with or without dashes, or a copied page
// link whose last path segment ends in the id.
func parsePageID(s string) (string, error) {
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = path.Base(u.Path)
	}
	if len(s) > 32 {
		if id, err := uuid.Parse(s); err == nil {
			return id.String(), nil
		}
		s = s[len(s)-32:]
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid parent page id %q: %v", s, err)
	}
	return id.String(), nil
}

func init() {
	setupCmd.Flags().String("parent", "", "create missing databases under this page (id or link)")
	rootCmd.AddCommand(setupCmd)
}
