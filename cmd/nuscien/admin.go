package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/nuscien/internal/access"
	"github.com/dropDatabas3/nuscien/internal/app"
	"github.com/dropDatabas3/nuscien/internal/domain/repository"
)

func newUserCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Administración de users"}

	var req access.RegisterRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Da de alta un user local (aplica la password policy)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, g, func(ctx context.Context, c *app.Container) error {
				u, err := c.Access.Register(ctx, req)
				if err != nil {
					return err
				}
				cmd.Printf("user %s id=%s\n", u.Name, u.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&req.UserName, "name", "", "login name")
	add.Flags().StringVar(&req.Password, "password", "", "password")
	add.Flags().StringVar(&req.Email, "email", "", "email")
	add.Flags().StringVar(&req.Nickname, "nickname", "", "nickname")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}

func newClientCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "client", Short: "Administración de accessing clients"}

	var name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Registra un client (la key se muestra una sola vez)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, g, func(ctx context.Context, c *app.Container) error {
				accounts := c.Access.Accounts()
				if _, err := accounts.GetClientByName(ctx, name); err == nil {
					return fmt.Errorf("client %q already exists", name)
				} else if !repository.IsNotFound(err) {
					return err
				}
				cl := repository.NewAccessingClient(name)
				key, err := cl.RenewCredentialKey()
				if err != nil {
					return err
				}
				if _, err := accounts.SaveClient(ctx, cl); err != nil {
					return err
				}
				cmd.Printf("client %s id=%s\nkey: %s\n", cl.Name, cl.ID, key)
				return nil
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "nombre del client")
	_ = add.MarkFlagRequired("name")

	renew := &cobra.Command{
		Use:   "renew-key",
		Short: "Genera una key nueva; la anterior deja de valer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, g, func(ctx context.Context, c *app.Container) error {
				accounts := c.Access.Accounts()
				cl, err := accounts.GetClientByName(ctx, name)
				if err != nil {
					return fmt.Errorf("client %q: %w", name, err)
				}
				key, err := cl.RenewCredentialKey()
				if err != nil {
					return err
				}
				if _, err := accounts.SaveClient(ctx, cl); err != nil {
					return err
				}
				cmd.Printf("client %s id=%s\nkey: %s\n", cl.Name, cl.ID, key)
				return nil
			})
		},
	}
	renew.Flags().StringVar(&name, "name", "", "nombre del client")
	_ = renew.MarkFlagRequired("name")

	cmd.AddCommand(add, renew)
	return cmd
}

// resolveTarget acepta un id o, para users y clients, el nombre.
func resolveTarget(ctx context.Context, accounts repository.AccountRepository, tt repository.TargetType, target string) (string, error) {
	switch tt {
	case repository.TargetUser:
		if u, err := accounts.GetUserByLogname(ctx, target); err == nil {
			return u.ID, nil
		}
		if _, err := accounts.GetUserByID(ctx, target); err != nil {
			return "", fmt.Errorf("user %q: %w", target, err)
		}
	case repository.TargetClient:
		if cl, err := accounts.GetClientByName(ctx, target); err == nil {
			return cl.ID, nil
		}
		if _, err := accounts.GetClientByID(ctx, target); err != nil {
			return "", fmt.Errorf("client %q: %w", target, err)
		}
	case repository.TargetGroup:
		if _, err := accounts.GetGroupByID(ctx, target); err != nil {
			return "", fmt.Errorf("group %q: %w", target, err)
		}
	}
	return target, nil
}

func newPermissionCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "permission", Short: "Administración de permisos"}

	var (
		siteID, targetType, target string
		perms                      []string
		admin, replace             bool
	)
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Otorga permisos a un target (--admin otorga el permiso de administración del site)",
		RunE: func(cmd *cobra.Command, args []string) error {
			tt, ok := repository.ParseTargetType(targetType)
			if !ok {
				return fmt.Errorf("--type %q: use user, group o client", targetType)
			}
			return withContainer(cmd, g, func(ctx context.Context, c *app.Container) error {
				accounts := c.Access.Accounts()
				id, err := resolveTarget(ctx, accounts, tt, target)
				if err != nil {
					return err
				}

				add := append([]string(nil), perms...)
				if admin {
					add = append(add, c.Access.PermissionAdminKey())
				}
				item, err := accounts.GetPermission(ctx, siteID, tt, id)
				switch {
				case repository.IsNotFound(err):
					item = repository.NewPermissionItem(siteID, tt, id)
				case err != nil:
					return err
				case !replace:
					for _, p := range item.List() {
						if !contains(add, p) {
							add = append(add, p)
						}
					}
				}
				item.State = repository.StateNormal
				item.Set(add)
				if _, err := accounts.SavePermission(ctx, item); err != nil {
					return err
				}
				cmd.Printf("%s %s/%s: %s\n", siteID, tt, id, strings.Join(item.List(), ","))
				return nil
			})
		},
	}
	grant.Flags().StringVar(&siteID, "site", "", "site id")
	grant.Flags().StringVar(&targetType, "type", "user", "user | group | client")
	grant.Flags().StringVar(&target, "target", "", "id o nombre del target")
	grant.Flags().StringSliceVarP(&perms, "perm", "p", nil, "permiso (repetible o separado por comas)")
	grant.Flags().BoolVar(&admin, "admin", false, "incluir el permiso de administración del site")
	grant.Flags().BoolVar(&replace, "replace", false, "reemplazar en vez de agregar")
	_ = grant.MarkFlagRequired("site")
	_ = grant.MarkFlagRequired("target")

	cmd.AddCommand(grant)
	return cmd
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func newTokenCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Mantenimiento de tokens"}

	var user, client string
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Borra los tokens expirados de un user o de un client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (user == "") == (client == "") {
				return fmt.Errorf("use --user o --client (uno solo)")
			}
			return withContainer(cmd, g, func(ctx context.Context, c *app.Container) error {
				accounts := c.Access.Accounts()
				var userID, clientID string
				var err error
				if user != "" {
					userID, err = resolveTarget(ctx, accounts, repository.TargetUser, user)
				} else {
					clientID, err = resolveTarget(ctx, accounts, repository.TargetClient, client)
				}
				if err != nil {
					return err
				}
				n, err := c.Access.CleanupExpiredTokens(ctx, userID, clientID)
				if err != nil {
					return err
				}
				cmd.Printf("deleted %d expired tokens\n", n)
				return nil
			})
		},
	}
	cleanup.Flags().StringVar(&user, "user", "", "login name o id del user")
	cleanup.Flags().StringVar(&client, "client", "", "nombre o id del client")

	cmd.AddCommand(cleanup)
	return cmd
}
