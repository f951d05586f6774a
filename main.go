package main

import (
	"os"
	"time"

	"bitbucket.org/akrix/backend/api"
	"bitbucket.org/akrix/backend/models"
	"bitbucket.org/akrix/backend/server"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// @title backend API
// @version 0.1
// @description Api for payments and receipts.

// @BasePath /
// @schemes http https

// @securityDefinitions.apiKey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	_ = godotenv.Load("dev.env")

	app := cli.NewApp()
	app.Name = "Akrix Payments"
	app.Usage = "payment and receipt backend"
	app.Version = "1.00"
	app.Compiled = time.Now()
	app.Commands = []cli.Command{
		{
			Name:  "backend-up",
			Usage: "This command starts the backend service",
			Action: func(c *cli.Context) error {
				StartServer(api.GetRoutes())
				return nil
			},
		},
		{
			Name:  "migrate",
			Usage: "Creates the database tables that do not exist yet",
			Action: func(c *cli.Context) error {
				ctx := server.GetAppContext()
				ctx.CreateSQLConnection()
				defer ctx.Context.SQLConn.Close()
				return ctx.Migrate()
			},
		},
		{
			Name:  "create-admin",
			Usage: "Creates an admin able to log into the backoffice",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "username", Usage: "login name"},
				cli.StringFlag{Name: "email", Usage: "admin email"},
				cli.StringFlag{Name: "name", Usage: "display name"},
				cli.StringFlag{Name: "password", Usage: "at least 8 characters"},
			},
			Action: func(c *cli.Context) error {
				ctx := server.GetAppContext()
				ctx.CreateSQLConnection()
				defer ctx.Context.SQLConn.Close()

				admin, err := api.CreateAdmin(ctx.Context.DB, &models.InsertAdminOpts{
					Username: c.String("username"),
					Email:    c.String("email"),
					Name:     c.String("name"),
					Password: c.String("password"),
				})
				if err != nil {
					return err
				}

				log.WithFields(log.Fields{
					"id":       admin.ID,
					"username": admin.Username,
				}).Info("admin created")
				return nil
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func StartServer(routes []*server.Route) {
	ctx := server.GetAppContext()
	ctx.CreateSQLConnection()
	ctx.CreateSMTPConnection()
	ctx.CreateRazorpayIntegration()
	ctx.CreateNewSessionS3()
	ctx.CreatePaymentService()

	server.UpServer(routes, ctx)
}
