package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"storeclip/src/integrations/backend"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the signed-in user's store profile",
}

var storeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the store profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newBackendClient().GetMyStore(cmd.Context())
		if err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				return errors.New("no store registered yet, create one with `store create`")
			}
			return err
		}
		return printJSON(os.Stdout, store)
	},
}

var storeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a store",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := storeRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		store, err := newBackendClient().CreateStore(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, store)
	},
}

var storeUpdateCmd = &cobra.Command{
	Use:   "update <store-id>",
	Short: "Edit a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := storeRequestFromFlags(cmd)
		if err != nil {
			return err
		}
		store, err := newBackendClient().UpdateStore(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, store)
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeGetCmd, storeCreateCmd, storeUpdateCmd)

	for _, c := range []*cobra.Command{storeCreateCmd, storeUpdateCmd} {
		c.Flags().String("name", "", "Store name")
		c.Flags().String("address", "", "Street address")
		c.Flags().String("description", "", "Short description")
		c.Flags().String("naver-url", "", "Naver place URL")
		c.MarkFlagRequired("name")
	}
}

func storeRequestFromFlags(cmd *cobra.Command) (backend.StoreRequest, error) {
	var req backend.StoreRequest
	var err error
	if req.Name, err = cmd.Flags().GetString("name"); err != nil {
		return req, err
	}
	if req.Address, err = cmd.Flags().GetString("address"); err != nil {
		return req, err
	}
	if req.Description, err = cmd.Flags().GetString("description"); err != nil {
		return req, err
	}
	if req.NaverURL, err = cmd.Flags().GetString("naver-url"); err != nil {
		return req, err
	}
	return req, nil
}
