package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yeisme/dropvault/pkg/cache"
	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/internal/service"
	"github.com/yeisme/dropvault/pkg/internal/storage"
	"github.com/yeisme/dropvault/pkg/internal/storage/kv"
	"github.com/yeisme/dropvault/pkg/rule"
)

var (
	userUUID     string
	userDisabled bool

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "provision and toggle users",
	}

	userAddCmd = &cobra.Command{
		Use:   "add",
		Short: "create a user and print its identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := userUUID
			if id == "" {
				id = uuid.NewString()
			}

			if !rule.IsCanonicalUUID(id) {
				return fmt.Errorf("invalid uuid %q", id)
			}

			return withStorage(cmd.Context(), func(m *storage.Manager) error {
				if _, err := m.Users.Create(cmd.Context(), id, !userDisabled); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), id)

				return nil
			})
		},
	}

	userEnableCmd = &cobra.Command{
		Use:   "enable <uuid>",
		Short: "allow a user to upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setUserEnabled(cmd, args[0], true)
		},
	}

	userDisableCmd = &cobra.Command{
		Use:   "disable <uuid>",
		Short: "forbid a user from uploading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setUserEnabled(cmd, args[0], false)
		},
	}

	userListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list users",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd.Context(), func(m *storage.Manager) error {
				users, err := m.Users.List(cmd.Context())
				if err != nil {
					return err
				}

				for _, u := range users {
					state := "enabled"
					if !u.Enabled {
						state = "disabled"
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.UUID, state)
				}

				return nil
			})
		},
	}
)

func setUserEnabled(cmd *cobra.Command, id string, enabled bool) error {
	ctx := cmd.Context()

	return withStorage(ctx, func(m *storage.Manager) error {
		if err := m.Users.SetEnabled(ctx, id, enabled); err != nil {
			return err
		}

		// 共享缓存中的旧结果需要清除，否则在 TTL 内仍按旧状态放行
		if m.KV != nil {
			c := cache.NewCache(m.KV, service.IdentityCacheNamespace)
			if err := c.Delete(ctx, id); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: failed to invalidate identity cache:", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%t\n", id, enabled)

		return nil
	})
}

// withStorage 打开管理命令所需的存储资源.
// 只有身份缓存开启且使用 redis 这类跨进程共享的 KV 时才连接 KV.
func withStorage(ctx context.Context, fn func(*storage.Manager) error) error {
	cfg := configs.GetConfig()

	opts := []storage.Option{storage.WithoutBlob()}
	if cfg.Auth.CacheTTL <= 0 || kv.KVType(cfg.KV.Type) != kv.KVTypeRedis {
		opts = append(opts, storage.WithoutKV())
	}

	m, err := storage.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(m)
}

func registerUserCommands() {
	userAddCmd.Flags().StringVar(&userUUID, "uuid", "", "use this identifier instead of a random one")
	userAddCmd.Flags().BoolVar(&userDisabled, "disabled", false, "create the user disabled")

	userCmd.AddCommand(userAddCmd, userEnableCmd, userDisableCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}
