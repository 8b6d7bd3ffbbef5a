package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bidon15/classroom/internal/api"
	"github.com/Bidon15/classroom/internal/feed"
	"github.com/Bidon15/classroom/internal/guard"
	"github.com/Bidon15/classroom/internal/members"
)

func newHomeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show the home screen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.renderHome()
		},
	}
	return withLocation(cmd, guard.Home)
}

type homeView struct {
	User  *api.User  `json:"user" yaml:"user"`
	Stats feed.Stats `json:"stats" yaml:"stats"`
}

func (a *app) renderHome() error {
	user, _ := a.session.User()
	stats := a.feed.Stats()

	if a.structured() {
		return a.printStructured(homeView{User: user, Stats: stats})
	}

	a.printf("Hello, %s\n", a.colorBold(user.FullName()))
	if user.Role != "" {
		a.printf("Role: %s\n", user.Role)
	}
	a.printf("\nFeed: %d posts, %d likes, %d comments\n", stats.Posts, stats.Likes, stats.Comments)
	return nil
}

func newProfileCmd(a *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your account",
		Long: `Show the signed-in account as stored locally.

With --refresh the record is fetched again from the server first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refresh {
				if err := a.session.RefreshProfile(cmd.Context()); err != nil {
					return fmt.Errorf("failed to refresh profile: %w", err)
				}
			}

			user, _ := a.session.User()
			if a.structured() {
				return a.printStructured(user)
			}

			confirmed := a.colorYellow("no")
			if user.Confirmed {
				confirmed = a.colorGreen("yes")
			}
			a.printf("ID:         %s\n", user.ID)
			a.printf("Name:       %s\n", user.FullName())
			a.printf("Email:      %s\n", user.Email)
			a.printf("Role:       %s\n", user.Role)
			a.printf("Type:       %s\n", user.Type)
			a.printf("Confirmed:  %s\n", confirmed)
			if user.CreatedAt != "" {
				a.printf("Created:    %s\n", user.CreatedAt)
			}
			if user.UpdatedAt != "" {
				a.printf("Updated:    %s\n", user.UpdatedAt)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch the profile from the server first")
	return withLocation(cmd, guard.Profile)
}

type memberRow struct {
	Name      string `json:"name" yaml:"name"`
	StudentID string `json:"student_id,omitempty" yaml:"student_id,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
}

type membersView struct {
	Year          string      `json:"year" yaml:"year"`
	GregorianYear string      `json:"gregorian_year" yaml:"gregorian_year"`
	Count         int         `json:"count" yaml:"count"`
	Members       []memberRow `json:"members" yaml:"members"`
}

func newMembersCmd(a *app) *cobra.Command {
	var year string

	cmd := &cobra.Command{
		Use:   "members",
		Short: "List class members for an academic year",
		Long: fmt.Sprintf(`List the members of the class for a Buddhist-calendar year.

Known years: %s (default %s).

Examples:
  classroom members
  classroom members --year 2566 -o json`, strings.Join(members.DefaultYears, ", "), members.DefaultYear),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := a.directory.Load(cmd.Context(), year)

			rows := make([]memberRow, 0, len(list))
			for _, m := range list {
				rows = append(rows, memberRow{
					Name:      members.DisplayName(m),
					StudentID: members.StudentID(m),
					Email:     m.Email,
					Role:      m.Role,
				})
			}

			if a.structured() {
				return a.printStructured(membersView{
					Year:          year,
					GregorianYear: members.GregorianYear(year),
					Count:         len(rows),
					Members:       rows,
				})
			}

			if len(rows) == 0 {
				a.printf("No members found for %s\n", year)
				return nil
			}

			w := a.newTable()
			printTableHeader(w, "#", "NAME", "STUDENT ID", "EMAIL")
			for i, r := range rows {
				studentID := r.StudentID
				if studentID == "" {
					studentID = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.Name, studentID, r.Email)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&year, "year", members.DefaultYear, "academic year (Buddhist calendar)")
	return withLocation(cmd, guard.Members)
}
