package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahmedandnoor/HappyClothify/internal/config"
	"github.com/ahmedandnoor/HappyClothify/internal/models"
	"github.com/ahmedandnoor/HappyClothify/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "happyclothify-cli",
		Short:         "Maintenance commands for the HappyClothify data store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(addUserCmd())
	rootCmd.AddCommand(addProductCmd())
	rootCmd.AddCommand(listOrdersCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore reads the same configuration as the server.
func openStore() (*store.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.Store.Driver, cfg.Store.DataDir, cfg.Store.DBPath)
}

func addUserCmd() *cobra.Command {
	var user models.User
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Register a customer account",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.AppendUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			fmt.Printf("User '%s' created successfully.\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user.Username, "username", "u", "", "Username for the new user")
	cmd.Flags().StringVarP(&user.Password, "password", "p", "", "Password for the new user")
	cmd.Flags().StringVar(&user.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&user.WhatsApp, "whatsapp", "", "WhatsApp number")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")

	return cmd
}

func addProductCmd() *cobra.Command {
	var (
		product models.Product
		price   string
	)
	cmd := &cobra.Command{
		Use:   "add-product",
		Short: "Add a product to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			product.Price = models.Price(price)
			if err := db.CreateProduct(cmd.Context(), &product); err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}
			fmt.Printf("Product %d '%s' created.\n", product.ID, product.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&product.Name, "name", "n", "", "Product name")
	cmd.Flags().StringVarP(&product.Description, "description", "d", "", "Product description")
	cmd.Flags().StringVar(&price, "price", "", "Price, as displayed")
	cmd.Flags().StringVar(&product.Image, "image", "", "Image URL")
	cmd.Flags().StringVar(&product.Link, "link", "", "External link")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("price")

	return cmd
}

func listOrdersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list-orders",
		Short: "Print every stored order",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			orders, err := db.Orders(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "    ")
				return enc.Encode(orders)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTIME\tUSER\tWHATSAPP\tPRODUCT\tPRICE\tCITY")
			for i, o := range orders {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					i, o.Timestamp, o.Username, o.WhatsApp, o.Product.Name, o.Product.Price, o.Address["city"])
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog, order and revenue totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.DashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Products: %d\nOrders:   %d\nUsers:    %d\nRevenue:  $%s\n",
				stats.TotalProducts, stats.TotalOrders, stats.TotalUsers, stats.Revenue.StringFixed(2))
			if stats.UnpricedOrders > 0 {
				fmt.Printf("Unpriced: %d\n", stats.UnpricedOrders)
			}
			return nil
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			fmt.Println(string(hash))
			return nil
		},
	}
}
