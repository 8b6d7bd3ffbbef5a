package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bidon15/classroom/internal/feed"
	"github.com/Bidon15/classroom/internal/guard"
)

var (
	errEmptyText    = errors.New("text is empty")
	errPostNotFound = errors.New("post not found")
)

func newFeedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Read and write the local feed",
		Long: `The feed lives on this device only. Posts, likes and comments are
never sent to the server.

Examples:
  classroom feed list
  classroom feed post "hello class"
  classroom feed like 01J5Z...
  classroom feed comment 01J5Z... "nice one"
  classroom feed show 01J5Z...`,
	}

	cmd.AddCommand(
		newFeedListCmd(a),
		newFeedShowCmd(a),
		newFeedPostCmd(a),
		newFeedLikeCmd(a),
		newFeedCommentCmd(a),
	)
	return cmd
}

func newFeedListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			posts := a.feed.Posts()

			if a.structured() {
				return a.printStructured(map[string]interface{}{
					"posts": posts,
					"count": len(posts),
				})
			}

			if len(posts) == 0 {
				a.printf("No posts yet\n")
				return nil
			}

			userID := a.currentUserID()
			w := a.newTable()
			printTableHeader(w, "ID", "AUTHOR", "CONTENT", "LIKES", "COMMENTS", "CREATED")
			for _, p := range posts {
				likes := fmt.Sprintf("%d", len(p.Likes))
				if p.Liked(userID) {
					likes = a.colorRed("♥ " + likes)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					p.ID,
					p.AuthorName,
					truncate(oneLine(p.Content), 40),
					likes,
					len(p.Comments),
					formatMillis(p.CreatedAt),
				)
			}
			return w.Flush()
		},
	}
	return withLocation(cmd, guard.Feed)
}

func newFeedShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, ok := a.feed.Post(args[0])
			if !ok {
				return errPostNotFound
			}
			if a.structured() {
				return a.printStructured(post)
			}
			a.printPost(post)
			return nil
		},
	}
	return withLocation(cmd, guard.Feed)
}

func newFeedPostCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <text>...",
		Short: "Publish a post",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, ok := a.feed.AddPost(strings.Join(args, " "))
			if !ok {
				return errEmptyText
			}
			if a.structured() {
				return a.printStructured(post)
			}
			a.printf("%s Posted %s\n", a.colorGreen("✓"), post.ID)
			return nil
		},
	}
	return withLocation(cmd, guard.Feed)
}

func newFeedLikeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like a post, or take the like back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.feed.ToggleLike(args[0]) {
				return errPostNotFound
			}
			post, _ := a.feed.Post(args[0])
			liked := post.Liked(a.currentUserID())

			if a.structured() {
				return a.printStructured(map[string]interface{}{
					"id":    post.ID,
					"liked": liked,
					"likes": len(post.Likes),
				})
			}
			if liked {
				a.printf("%s Liked %s (%d likes)\n", a.colorRed("♥"), post.ID, len(post.Likes))
			} else {
				a.printf("Unliked %s (%d likes)\n", post.ID, len(post.Likes))
			}
			return nil
		},
	}
	return withLocation(cmd, guard.Feed)
}

func newFeedCommentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <post-id> <text>...",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID := args[0]
			if _, ok := a.feed.Post(postID); !ok {
				return errPostNotFound
			}

			comment, ok := a.feed.AddComment(postID, strings.Join(args[1:], " "))
			if !ok {
				return errEmptyText
			}
			if a.structured() {
				return a.printStructured(comment)
			}
			a.printf("%s Commented on %s\n", a.colorGreen("✓"), postID)
			return nil
		},
	}
	return withLocation(cmd, guard.Feed)
}

func (a *app) printPost(p feed.Post) {
	a.printf("%s  %s\n", a.colorBold(p.AuthorName), formatMillis(p.CreatedAt))
	a.printf("%s\n\n", p.Content)
	a.printf("%d likes, %d comments\n", len(p.Likes), len(p.Comments))
	for _, c := range p.Comments {
		a.printf("  %s: %s\n", a.colorBold(c.UserName), c.Text)
	}
}

func (a *app) currentUserID() string {
	if user, ok := a.session.User(); ok {
		return user.ID
	}
	return ""
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
