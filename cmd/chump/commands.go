package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/karanlyons/chump"
)

// maxConcurrentSends bounds the fan-out of "send" across users.
const maxConcurrentSends = 4

func (c *cli) validateCommand() *cobra.Command {
	var user, device string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the application token, and optionally a user key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			ok, err := c.app.IsAuthenticated(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("application token is invalid")
			}
			fmt.Fprintf(out, "application: valid (%s)\n", c.app.RateLimit())

			if user == "" {
				user = c.cfg.User
			}
			if user == "" {
				return nil
			}

			u := c.app.User(user)
			if err = u.Validate(ctx, device); err != nil {
				return err
			}
			if !u.Authenticated().Bool() {
				return fmt.Errorf("user %s is invalid", user)
			}
			kind := "user"
			if u.IsGroup() {
				kind = "group"
			}
			fmt.Fprintf(out, "%s: valid, devices: %s\n", kind, strings.Join(u.Devices(), ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user or group key (default $PUSHOVER_USER)")
	cmd.Flags().StringVar(&device, "device", "", "restrict validation to this device")
	return cmd
}

func (c *cli) limitsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show the application's monthly message quota",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Validate(cmd.Context()); err != nil {
				return err
			}
			if !c.app.Authenticated().Bool() {
				return errors.New("application token is invalid")
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.app.RateLimit())
			return nil
		},
	}
}

func (c *cli) soundsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sounds",
		Short: "List the notification sounds available to the application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sounds, err := c.app.Sounds(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(sounds))
			for name := range sounds {
				names = append(names, name)
			}
			sort.Strings(names)

			table := newTable(cmd.OutOrStdout(), "Sound", "Description")
			for _, name := range names {
				table.Append([]string{name, sounds[name]})
			}
			table.Render()
			return nil
		},
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

type sendResult struct {
	user string
	msg  chump.Notification
	err  error
}

func (c *cli) sendCommand() *cobra.Command {
	var (
		users    []string
		params   chump.MessageParams
		priority string
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send [flags] MESSAGE",
		Short: "Send a message to one or more users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Message = args[0]
			p, err := chump.ParsePriority(priority)
			if err != nil {
				return err
			}
			params.Priority = p

			if len(users) == 0 && c.cfg.User != "" {
				users = []string{c.cfg.User}
			}
			if len(users) == 0 {
				return errors.New("no recipient: set PUSHOVER_USER or pass --user")
			}

			// Build every message before sending any, so bad input never causes a partial send.
			results := make([]sendResult, len(users))
			for i, key := range users {
				msg, err := c.app.User(key).CreateMessage(params)
				if err != nil {
					return err
				}
				results[i] = sendResult{user: key, msg: msg}
			}

			var g errgroup.Group
			g.SetLimit(maxConcurrentSends)
			for i := range results {
				r := &results[i]
				g.Go(func() error {
					r.err = r.msg.Send(cmd.Context())
					if em, ok := r.msg.(*chump.EmergencyMessage); ok && r.err == nil && wait {
						r.err = em.Wait(cmd.Context(), interval)
					}
					return r.err
				})
			}
			err = g.Wait()

			for _, r := range results {
				printResult(cmd.OutOrStdout(), r)
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&users, "user", nil, "recipient user or group key, repeatable (default $PUSHOVER_USER)")
	flags.StringVar(&params.Title, "title", "", "message title")
	flags.BoolVar(&params.HTML, "html", false, "render the message as HTML")
	flags.BoolVar(&params.Monospace, "monospace", false, "render the message in a monospace font")
	flags.StringVar(&params.Sound, "sound", "", "notification sound, see \"chump sounds\"")
	flags.StringVar(&priority, "priority", "normal", "lowest, low, normal, high or emergency")
	flags.StringVar(&params.URL, "url", "", "supplementary URL")
	flags.StringVar(&params.URLTitle, "url-title", "", "title for the supplementary URL")
	flags.StringVar(&params.Device, "device", "", "deliver to these devices only (comma separated)")
	flags.DurationVar(&params.Retry, "retry", 0, "emergency: interval between re-alerts")
	flags.DurationVar(&params.Expire, "expire", 0, "emergency: stop re-alerting after this long")
	flags.StringVar(&params.Callback, "callback", "", "emergency: URL requested on acknowledgement")
	flags.BoolVar(&wait, "wait", false, "emergency: block until the message is acknowledged or expires")
	flags.DurationVar(&interval, "poll-interval", chump.DefaultPollInterval, "emergency: receipt polling interval for --wait")
	return cmd
}

func printResult(w io.Writer, r sendResult) {
	switch {
	case r.msg.IsSent() != chump.Yes:
		fmt.Fprintf(w, "%s: failed: %v\n", r.user, r.err)
	case r.err != nil:
		fmt.Fprintf(w, "%s: sent %s, wait failed: %v\n", r.user, r.msg.ID(), r.err)
	default:
		line := fmt.Sprintf("%s: sent %s at %s", r.user, r.msg.ID(), r.msg.SentAt().Format(time.RFC3339))
		if em, ok := r.msg.(*chump.EmergencyMessage); ok {
			line += ", receipt " + em.Receipt()
			switch {
			case em.IsAcknowledged() == chump.Yes:
				line += fmt.Sprintf(", acknowledged by %s at %s", em.AcknowledgedByDevice(), em.AcknowledgedAt().Format(time.RFC3339))
			case em.IsExpired() == chump.Yes:
				line += ", expired unacknowledged"
			}
		}
		fmt.Fprintln(w, line)
	}
}
