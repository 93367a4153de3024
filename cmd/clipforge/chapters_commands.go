package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/chapters"
)

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "List and edit chapter markers",
	}
	cmd.AddCommand(newChaptersListCommand(ctx))
	cmd.AddCommand(newChaptersSetCommand(ctx))
	cmd.AddCommand(newChaptersEditCommand(ctx))
	cmd.AddCommand(newChaptersSplitCommand(ctx))
	cmd.AddCommand(newChaptersRemoveCommand(ctx))
	return cmd
}

func newChaptersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "Show the file's chapter markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			engine, err := ctx.chapterEngine()
			if err != nil {
				return err
			}
			list, err := engine.List(cmd.Context(), input)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No chapters.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for i, ch := range list {
				rows = append(rows, []string{strconv.Itoa(i + 1), ch.Start, ch.End, ch.Title})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Start", "End", "Title"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newChaptersSetCommand(ctx *commandContext) *cobra.Command {
	var output, fromFile string

	cmd := &cobra.Command{
		Use:   "set <file> [start end title]...",
		Short: "Replace the chapter list",
		Long: `Replace all chapters with the given list. Chapters come either as
repeated start/end/title argument triples, or one per line from a
--from file ("START END TITLE", timestamps as HH:MM:SS or seconds).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			var list []chapters.Chapter
			if fromFile != "" {
				if list, err = readChapterFile(fromFile); err != nil {
					return err
				}
			} else {
				if list, err = parseChapterArgs(args[1:]); err != nil {
					return err
				}
			}
			if len(list) == 0 {
				return fmt.Errorf("no chapters given: pass start/end/title triples or --from")
			}
			dest, err := ctx.outputPath(output, input, "chapters")
			if err != nil {
				return err
			}
			engine, err := ctx.chapterEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.Set(cmd.Context(), input, dest, list); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().StringVar(&fromFile, "from", "", "Read the chapter list from a file")
	return cmd
}

func newChaptersEditCommand(ctx *commandContext) *cobra.Command {
	var output, start, end, title string

	cmd := &cobra.Command{
		Use:   "edit <file> <index>",
		Short: "Change one chapter's boundaries or title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("chapter index %q: %w", args[1], err)
			}
			var edit chapters.Edit
			if cmd.Flags().Changed("start") {
				edit.Start = &start
			}
			if cmd.Flags().Changed("end") {
				edit.End = &end
			}
			if cmd.Flags().Changed("title") {
				edit.Title = &title
			}
			if edit.Start == nil && edit.End == nil && edit.Title == nil {
				return fmt.Errorf("nothing to change: pass --start, --end, or --title")
			}
			dest, err := ctx.outputPath(output, input, "chapters")
			if err != nil {
				return err
			}
			engine, err := ctx.chapterEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.EditChapter(cmd.Context(), input, dest, index, edit); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().StringVar(&start, "start", "", "New start timestamp")
	cmd.Flags().StringVar(&end, "end", "", "New end timestamp")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	return cmd
}

func newChaptersSplitCommand(ctx *commandContext) *cobra.Command {
	var output string
	var at float64

	cmd := &cobra.Command{
		Use:   "split <file> <index>",
		Short: "Split one chapter in two at a timestamp",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("chapter index %q: %w", args[1], err)
			}
			if !cmd.Flags().Changed("at") {
				return fmt.Errorf("--at is required")
			}
			dest, err := ctx.outputPath(output, input, "chapters")
			if err != nil {
				return err
			}
			engine, err := ctx.chapterEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.SplitChapter(cmd.Context(), input, dest, index, at); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.Flags().Float64Var(&at, "at", 0, "Split point in seconds, strictly inside the chapter")
	return cmd
}

func newChaptersRemoveCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "remove <file>",
		Short: "Strip all chapter markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			dest, err := ctx.outputPath(output, input, "nochapters")
			if err != nil {
				return err
			}
			engine, err := ctx.chapterEngine()
			if err != nil {
				return err
			}
			return ctx.withOutputLock(func() error {
				if err := engine.Remove(cmd.Context(), input, dest); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func parseChapterArgs(args []string) ([]chapters.Chapter, error) {
	if len(args)%3 != 0 {
		return nil, fmt.Errorf("chapter arguments must come as start/end/title triples, got %d values", len(args))
	}
	list := make([]chapters.Chapter, 0, len(args)/3)
	for i := 0; i < len(args); i += 3 {
		list = append(list, chapters.Chapter{
			Start: chapters.NormalizeTimestamp(args[i]),
			End:   chapters.NormalizeTimestamp(args[i+1]),
			Title: args[i+2],
		})
	}
	return list, nil
}

func readChapterFile(path string) ([]chapters.Chapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var list []chapters.Chapter
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("chapter line %q: want START END TITLE", line)
		}
		list = append(list, chapters.Chapter{
			Start: chapters.NormalizeTimestamp(fields[0]),
			End:   chapters.NormalizeTimestamp(fields[1]),
			Title: strings.Join(fields[2:], " "),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
