// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   defaultConfigPath,
		},
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "Base URL of the library backend (overrides api.base_url)",
			Sources: cli.EnvVars(envAPIURL),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// filterFlags are shared by commands that derive a shelf.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "view",
			Usage: "dashboard, completed, remaining or all (default from display.default_view)",
		},
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Case-insensitive substring of title or author",
		},
		&cli.StringFlag{
			Name:    "letter",
			Aliases: []string{"l"},
			Usage:   "First letter of the title, or # for titles not starting with a letter",
		},
		&cli.StringFlag{
			Name:  "author",
			Usage: "Case-insensitive substring of the author",
		},
		&cli.BoolFlag{
			Name:  "with-cover",
			Usage: "Only books with a cover image",
		},
		&cli.BoolFlag{
			Name:  "with-progress",
			Usage: "Only books with at least one page read",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "title, author or created (default from display.default_sort)",
		},
	}
}

// bookFieldFlags are shared by books add and books edit.
func bookFieldFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "title",
			Aliases:  []string{"t"},
			Usage:    "Book title",
			Required: required,
		},
		&cli.StringFlag{
			Name:     "author",
			Aliases:  []string{"a"},
			Usage:    "Book author",
			Required: required,
		},
		&cli.StringFlag{
			Name:    "description",
			Aliases: []string{"d"},
			Usage:   "Free-form description",
		},
		&cli.StringFlag{
			Name:  "pages-total",
			Usage: "Total number of pages (non-numeric input counts as 0)",
		},
		&cli.StringFlag{
			Name:  "pages-read",
			Usage: "Number of pages read (non-numeric input counts as 0)",
		},
		&cli.StringFlag{
			Name:  "image",
			Usage: "Path to a cover image to upload",
		},
	}
}

// setupCommand creates the config file and initializes the session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config file and initialize storage",
		Action: r.Setup,
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account and session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the session token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username (prompted when omitted)",
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (prompted when omitted)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (prompted when omitted)",
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the stored session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "remote",
						Usage: "Also fetch the profile from the backend",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// booksCommand handles collection operations
func booksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "books",
		Aliases: []string{"book", "b"},
		Usage:   "List and manage your books",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List books matching the filters",
				Flags: append(filterFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.BooksList,
			},
			{
				Name:   "add",
				Usage:  "Add a book",
				Flags:  bookFieldFlags(true),
				Action: r.BooksAdd,
			},
			{
				Name:  "edit",
				Usage: "Edit a book; unset flags keep their current values",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Book ID",
						Required: true,
					},
				}, bookFieldFlags(false)...),
				Action: r.BooksEdit,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete a book",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Book ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.BooksDelete,
			},
			{
				Name:  "cover",
				Usage: "Download or open a book's cover image",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Book ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: the cover's file name)",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the cover in the browser instead of downloading it",
					},
				},
				Action: r.BooksCover,
			},
			{
				Name:  "export",
				Usage: "Export books matching the filters",
				Flags: append(filterFlags(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, markdown, text or json",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title",
					},
				),
				Action: r.BooksExport,
			},
		},
	}
}

// statsCommand prints statistics over the whole collection.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show reading statistics",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Stats,
	}
}

// tuiCommand returns the top-level TUI command for the interactive dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive dashboard",
		Action:  r.TUI,
	}
}
