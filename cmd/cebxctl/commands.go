package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/urfave/cli/v3"
)

const dateLayout = "2006-01-02"

func quoteCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:    "quote",
		Aliases: []string{"q"},
		Usage:   "Price a shipment with the dynamic pricing engine",
		Flags: []cli.Flag{
			&cli.FloatFlag{Name: "base-price", Usage: "Base price before factors"},
			&cli.StringFlag{Name: "origin", Usage: "Origin country code"},
			&cli.StringFlag{Name: "destination", Usage: "Destination country code"},
			&cli.StringFlag{Name: "mode", Usage: "Transport mode [air, sea, land]"},
			&cli.StringFlag{Name: "service", Usage: "Service level [standard, express, economy]"},
			&cli.StringFlag{Name: "currency", Usage: "Quote currency"},
			&cli.FloatFlag{Name: "weight", Usage: "Shipment weight"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			params := domain.PricingParams{
				OriginCountry:      cmd.String("origin"),
				DestinationCountry: cmd.String("destination"),
				Mode:               domain.ShipmentMode(cmd.String("mode")),
				ServiceLevel:       cmd.String("service"),
				Currency:           cmd.String("currency"),
			}
			if cmd.IsSet("base-price") {
				params.BasePrice = domain.Float(cmd.Float("base-price"))
			}
			if cmd.IsSet("weight") {
				params.Weight = domain.Float(cmd.Float("weight"))
			}

			quote, err := s.app.Pricing.Calculate(ctx, params)
			if err != nil {
				return err
			}
			return s.encode(quote)
		},
	}
}

func scanCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Score a stored shipment for fraud",
		ArgsUsage: "<shipment-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "save", Usage: "Record the verdict"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			shipment, err := s.shipment(ctx, cmd)
			if err != nil {
				return err
			}

			result, err := s.app.Fraud.Scan(ctx, shipment)
			if err != nil {
				return err
			}
			if cmd.Bool("save") {
				if err := s.app.Repository.SaveFraudScan(ctx, result); err != nil {
					return err
				}
			}
			return s.encode(result)
		},
	}
}

func batchScanCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "batch-scan",
		Usage: "Scan every recent shipment still in created status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			result, err := s.app.Fraud.BatchScan(ctx)
			if err != nil {
				return err
			}
			return s.encode(result)
		},
	}
}

func commissionCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:      "commission",
		Aliases:   []string{"c"},
		Usage:     "Compute the commission breakdown of a stored shipment",
		ArgsUsage: "<shipment-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			shipment, err := s.shipment(ctx, cmd)
			if err != nil {
				return err
			}
			return s.encode(s.app.Commission.Calculate(shipment))
		},
	}
}

func reportCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Summarize an account's commissions over a date range",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Usage: "Account ID", Required: true},
			&cli.StringFlag{Name: "from", Usage: "First day (YYYY-MM-DD)", Required: true},
			&cli.StringFlag{Name: "to", Usage: "Last day (YYYY-MM-DD), defaults to from"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			from, err := time.Parse(dateLayout, cmd.String("from"))
			if err != nil {
				return fmt.Errorf("invalid from date: %w", err)
			}
			to := from
			if v := cmd.String("to"); v != "" {
				if to, err = time.Parse(dateLayout, v); err != nil {
					return fmt.Errorf("invalid to date: %w", err)
				}
			}
			if to.Before(from) {
				return errors.New("to must not be before from")
			}

			report, err := s.app.Commission.Report(ctx, cmd.String("account"), from, to)
			if err != nil {
				return err
			}
			return s.encode(report)
		},
	}
}

func tablesCmd(s *session) *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "Print the effective rate, weight and factor tables",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return s.encode(s.app.Tables)
		},
	}
}

func (s *session) shipment(ctx context.Context, cmd *cli.Command) (*domain.Shipment, error) {
	id := cmd.Args().First()
	if id == "" {
		return nil, errors.New("shipment id is required")
	}
	shipment, err := s.app.Repository.GetShipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipment %s: %w", id, err)
	}
	return shipment, nil
}
