package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/model"
)

func (a *app) inviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite people to a ledger and answer invitations",
	}

	createCmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Invite someone to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				var invitation *model.LedgerInvitation
				err = retry(ctx, func() error {
					invitation, err = s.engine.CreateInvitation(ctx, s.user.ID, ledger.ID, args[0], model.Role(strings.ToUpper(role)))
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Invited %s to %q as %s", invitation.Email, ledger.Name, invitation.Role)))
				cmd.Println(cli.FormatInfo(fmt.Sprintf("Token %s expires %s", invitation.Token, invitation.ExpiresAt.Format(dateLayout))))
				return nil
			})
		},
	}
	createCmd.Flags().String("role", string(model.RoleEditor), "role to grant (EDITOR, VIEWER)")
	addLedgerFlag(createCmd)

	respondCmd := &cobra.Command{
		Use:   "respond <token>",
		Short: "Accept an invitation, or decline it with --decline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decline, _ := cmd.Flags().GetBool("decline")
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				var invitation *model.LedgerInvitation
				err := retry(ctx, func() error {
					var err error
					invitation, err = s.engine.RespondToInvitation(ctx, args[0], s.user.ID, !decline)
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Invitation to ledger %d %s",
					invitation.LedgerID, strings.ToLower(string(invitation.Status)))))
				return nil
			})
		},
	}
	respondCmd.Flags().Bool("decline", false, "decline instead of accepting")

	revokeCmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Withdraw a pending invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "invitation")
			if err != nil {
				return err
			}
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				if err := retry(ctx, func() error { return s.engine.RevokeInvitation(ctx, s.user.ID, id) }); err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Revoked invitation %d", id)))
				return nil
			})
		},
	}

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List open invitations addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				invitations, err := s.engine.ListPendingInvitationsForEmail(ctx, s.user.Email)
				if err != nil {
					return err
				}
				if len(invitations) == 0 {
					cmd.Println(cli.FormatInfo("No pending invitations"))
					return nil
				}
				rows := make([][]string, 0, len(invitations))
				for _, inv := range invitations {
					rows = append(rows, []string{
						strconv.FormatInt(inv.ID, 10),
						strconv.FormatInt(inv.LedgerID, 10),
						string(inv.Role),
						inv.ExpiresAt.Format(dateLayout),
						inv.Token,
					})
				}
				cmd.Println(cli.RenderTable([]string{"ID", "Ledger", "Role", "Expires", "Token"}, rows))
				return nil
			})
		},
	}

	membersCmd := &cobra.Command{
		Use:   "members",
		Short: "List the ledger's members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				members, err := s.engine.ListMembers(ctx, s.user.ID, ledger.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(members))
				for _, m := range members {
					rows = append(rows, []string{m.Email, m.DisplayName, string(m.Role)})
				}
				cmd.Println(cli.RenderTable([]string{"Email", "Name", "Role"}, rows))
				return nil
			})
		},
	}
	addLedgerFlag(membersCmd)

	cmd.AddCommand(createCmd, respondCmd, revokeCmd, pendingCmd, membersCmd)
	return cmd
}
