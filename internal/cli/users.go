package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users with stored reflections",
		Run:   runUsers,
	}

	newUser := &cobra.Command{
		Use:   "new",
		Short: "Print a fresh user ID",
		Run: func(cmd *cobra.Command, args []string) {
			id := uuid.NewString()
			printOut(map[string]string{"user_id": id}, func(w io.Writer) { fmt.Fprintln(w, id) })
		},
	}

	cmd.AddCommand(newUser)
	RootCmd.AddCommand(cmd)
}

func runUsers(cmd *cobra.Command, args []string) {
	s, err := openStore(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	users, err := s.Users(cmd.Context())
	if err != nil {
		exitErr("users", err)
	}
	if users == nil {
		users = []string{}
	}
	printOut(users, func(w io.Writer) {
		for _, u := range users {
			fmt.Fprintln(w, u)
		}
	})
}
