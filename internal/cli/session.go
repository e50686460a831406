package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/store"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage tagged sessions",
	}

	add := &cobra.Command{
		Use:   "add [text]",
		Short: "Store a session",
		Long:  "Store a session. Text can be a positional arg or piped via stdin. Sessions are immutable except for their tags.",
		Run:   runSessionAdd,
	}
	add.Flags().String("id", "", "Session ID (default: generated)")
	add.Flags().StringP("tags", "t", "", "Comma-separated confirmed tags")
	add.Flags().String("start", "", "Start time, RFC 3339 (default: now)")
	add.Flags().String("end", "", "End time, RFC 3339 (default: start)")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionGet,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions in start order",
		Run:   runSessionList,
	}
	list.Flags().String("tag", "", "Only sessions confirmed with this tag")
	list.Flags().StringP("query", "q", "", "Only sessions whose text contains this")
	list.Flags().String("since", "", "Only sessions starting at or after this time (RFC 3339)")
	list.Flags().IntP("limit", "l", 0, "Max results (0 for all)")

	tag := &cobra.Command{
		Use:   "tag <id> <tags>",
		Short: "Replace the confirmed tags of a session",
		Long:  "Replace the confirmed tags of a session with a comma-separated list. An empty list clears them.",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runSessionTag,
	}

	sessionCmd.AddCommand(add, get, list, tag)
	RootCmd.AddCommand(sessionCmd)
}

func runSessionAdd(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	tagsStr, _ := cmd.Flags().GetString("tags")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")

	text, err := readText(args)
	if err != nil {
		exitErr("session add", err)
	}
	if text == "" {
		exitErr("session add", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	start := time.Now().UTC()
	if startStr != "" {
		if start, err = parseTime(startStr); err != nil {
			exitErr("parse --start", err)
		}
	}
	var end time.Time
	if endStr != "" {
		if end, err = parseTime(endStr); err != nil {
			exitErr("parse --end", err)
		}
		if end.Before(start) {
			exitErr("session add", fmt.Errorf("--end is before --start"))
		}
	}

	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := s.SaveSession(cmd.Context(), model.Session{
		ID:            id,
		StartedAt:     start,
		EndedAt:       end,
		Text:          text,
		ConfirmedTags: splitTags(tagsStr),
	})
	if err != nil {
		exitErr("session add", err)
	}
	printOut(sess, func(w io.Writer) { fmt.Fprintln(w, sess.ID) })
}

func runSessionGet(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := s.GetSession(cmd.Context(), args[0])
	if err != nil {
		exitErr("session get", err)
	}
	printOut(sess, func(w io.Writer) { writeSession(w, *sess, true) })
}

func runSessionList(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	query, _ := cmd.Flags().GetString("query")
	sinceStr, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")

	f := store.SessionFilter{Tag: tag, Query: query, Limit: limit}
	if sinceStr != "" {
		since, err := parseTime(sinceStr)
		if err != nil {
			exitErr("parse --since", err)
		}
		f.Since = since
	}

	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sessions, err := s.LoadSessions(cmd.Context(), f)
	if err != nil {
		exitErr("session list", err)
	}
	printOut(sessions, func(w io.Writer) {
		for _, sess := range sessions {
			writeSession(w, sess, false)
		}
	})
}

func runSessionTag(cmd *cobra.Command, args []string) {
	var tags []string
	if len(args) == 2 {
		tags = splitTags(args[1])
	}

	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := s.UpdateSessionTags(cmd.Context(), args[0], tags)
	if err != nil {
		exitErr("session tag", err)
	}
	printOut(sess, func(w io.Writer) { writeSession(w, *sess, false) })
}

func writeSession(w io.Writer, sess model.Session, full bool) {
	fmt.Fprintf(w, "%s  %s  [%s]\n", sess.ID, sess.StartedAt.Format(time.RFC3339), strings.Join(sess.ConfirmedTags, ","))
	if full {
		fmt.Fprintln(w, sess.Text)
	}
}

// parseTime accepts RFC 3339 or a bare date.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 or YYYY-MM-DD: %w", err)
	}
	return t.UTC(), nil
}
