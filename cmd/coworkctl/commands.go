package main

import (
	"cowork/pkg/model"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func (c *ctl) reservationCommand() *cli.Command {
	return &cli.Command{
		Name:    "reservation",
		Aliases: []string{"res"},
		Usage:   "reserve, inspect and cancel reservations",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "reserve a resource for [start, end)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Required: true, Usage: "workspace, meeting_room or equipment"},
					&cli.StringFlag{Name: "resource", Required: true},
					&cli.StringFlag{Name: "member", Required: true},
					&cli.StringFlag{Name: "start", Required: true, Usage: "RFC3339"},
					&cli.StringFlag{Name: "end", Required: true, Usage: "RFC3339"},
					&cli.StringFlag{Name: "idempotency-key", Usage: "defaults to a random key"},
				},
				Action: func(cc *cli.Context) error {
					start, err := parseTime(cc, "start")
					if err != nil {
						return err
					}
					end, err := parseTime(cc, "end")
					if err != nil {
						return err
					}
					key := cc.String("idempotency-key")
					if key == "" {
						key = uuid.NewString()
					}
					r, err := c.api.Reservations.Reserve(cc.Context, model.ReservationRequest{
						ResourceType: cc.String("type"),
						ResourceID:   cc.String("resource"),
						MemberID:     cc.String("member"),
						StartTime:    start,
						EndTime:      end,
					}, key)
					if err != nil {
						return err
					}
					return c.print(r)
				},
			},
			{
				Name:      "get",
				ArgsUsage: "<id>",
				Action: func(cc *cli.Context) error {
					id, err := requireArg(cc, "id")
					if err != nil {
						return err
					}
					r, err := c.api.Reservations.GetByID(cc.Context, id)
					if err != nil {
						return err
					}
					return c.print(r)
				},
			},
			{
				Name:      "cancel",
				ArgsUsage: "<id>",
				Action: func(cc *cli.Context) error {
					id, err := requireArg(cc, "id")
					if err != nil {
						return err
					}
					r, err := c.api.Reservations.Cancel(cc.Context, id)
					if err != nil {
						return err
					}
					return c.print(r)
				},
			},
			{
				Name:      "member",
				Usage:     "list a member's reservations, newest first",
				ArgsUsage: "<member-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit"},
					&cli.Int64Flag{Name: "offset"},
				},
				Action: func(cc *cli.Context) error {
					id, err := requireArg(cc, "member-id")
					if err != nil {
						return err
					}
					page, err := c.api.Reservations.ByMember(cc.Context, id, cc.Int("limit"), cc.Int64("offset"))
					if err != nil {
						return err
					}
					return c.print(page)
				},
			},
			{
				Name:  "upcoming",
				Flags: []cli.Flag{&cli.IntFlag{Name: "limit"}},
				Action: func(cc *cli.Context) error {
					rs, err := c.api.Reservations.Upcoming(cc.Context, cc.Int("limit"))
					if err != nil {
						return err
					}
					return c.print(rs)
				},
			},
			{
				Name:  "search",
				Usage: "list reservations of a resource overlapping [start, end)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Required: true},
					&cli.StringFlag{Name: "resource", Required: true},
					&cli.StringFlag{Name: "start", Usage: "RFC3339"},
					&cli.StringFlag{Name: "end", Usage: "RFC3339"},
					&cli.IntFlag{Name: "limit"},
					&cli.Int64Flag{Name: "offset"},
				},
				Action: func(cc *cli.Context) error {
					from, err := parseTime(cc, "start")
					if err != nil {
						return err
					}
					to, err := parseTime(cc, "end")
					if err != nil {
						return err
					}
					page, err := c.api.Reservations.Search(cc.Context, model.ReservationSearch{
						ResourceType: cc.String("type"),
						ResourceID:   cc.String("resource"),
						From:         from,
						To:           to,
					}, cc.Int("limit"), cc.Int64("offset"))
					if err != nil {
						return err
					}
					return c.print(page)
				},
			},
		},
	}
}

func (c *ctl) resourceCommand() *cli.Command {
	return &cli.Command{
		Name:  "resource",
		Usage: "manage the resource catalog",
		Subcommands: []*cli.Command{
			{
				Name: "create",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Required: true},
					&cli.StringFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "location", Required: true},
					&cli.IntFlag{Name: "capacity"},
					&cli.Int64Flag{Name: "price-per-hour"},
					&cli.StringSliceFlag{Name: "feature"},
				},
				Action: func(cc *cli.Context) error {
					r, err := c.api.Resources.Create(cc.Context, model.Resource{
						Type:         cc.String("type"),
						ID:           cc.String("id"),
						Name:         cc.String("name"),
						Location:     cc.String("location"),
						Capacity:     cc.Int("capacity"),
						PricePerHour: cc.Int64("price-per-hour"),
						Features:     cc.StringSlice("feature"),
					})
					if err != nil {
						return err
					}
					return c.print(r)
				},
			},
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type"},
					&cli.StringFlag{Name: "location"},
					&cli.BoolFlag{Name: "available", Usage: "only resources not occupied"},
				},
				Action: func(cc *cli.Context) error {
					rs, err := c.api.Resources.List(cc.Context, model.ResourceFilter{
						Type:     cc.String("type"),
						Location: cc.String("location"),
					}, cc.Bool("available"))
					if err != nil {
						return err
					}
					return c.print(rs)
				},
			},
			{
				Name:      "get",
				ArgsUsage: "<type> <id>",
				Action: func(cc *cli.Context) error {
					if cc.NArg() != 2 {
						return cli.Exit("usage: resource get <type> <id>", 2)
					}
					r, err := c.api.Resources.Get(cc.Context, cc.Args().Get(0), cc.Args().Get(1))
					if err != nil {
						return err
					}
					return c.print(r)
				},
			},
			{
				Name:      "status",
				ArgsUsage: "<type> <id> <occupied|not_occupied|under_maintenance>",
				Action: func(cc *cli.Context) error {
					if cc.NArg() != 3 {
						return cli.Exit("usage: resource status <type> <id> <status>", 2)
					}
					r, err := c.api.Resources.SetStatus(cc.Context, cc.Args().Get(0), cc.Args().Get(1), cc.Args().Get(2))
					if err != nil {
						return err
					}
					return c.print(r)
				},
			},
		},
	}
}

func (c *ctl) memberCommand() *cli.Command {
	return &cli.Command{
		Name:  "member",
		Usage: "register and manage members",
		Subcommands: []*cli.Command{
			{
				Name: "register",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "phone", Required: true},
					&cli.StringFlag{Name: "plan", Required: true, Usage: "day_pass, hot_desk, dedicated or private_office"},
					&cli.StringFlag{Name: "access", Usage: "standard or all_hours"},
				},
				Action: func(cc *cli.Context) error {
					reg, err := c.api.Members.Register(cc.Context, model.Member{
						Name:           cc.String("name"),
						Email:          cc.String("email"),
						Phone:          cc.String("phone"),
						MembershipPlan: cc.String("plan"),
					}, cc.String("access"))
					if err != nil {
						return err
					}
					return c.print(reg)
				},
			},
			{
				Name:      "get",
				ArgsUsage: "<id>",
				Action: func(cc *cli.Context) error {
					id, err := requireArg(cc, "id")
					if err != nil {
						return err
					}
					m, err := c.api.Members.Get(cc.Context, id)
					if err != nil {
						return err
					}
					return c.print(m)
				},
			},
			{
				Name:      "plan",
				Usage:     "list active members on a plan",
				ArgsUsage: "<plan>",
				Action: func(cc *cli.Context) error {
					plan, err := requireArg(cc, "plan")
					if err != nil {
						return err
					}
					ms, err := c.api.Members.ByPlan(cc.Context, plan)
					if err != nil {
						return err
					}
					return c.print(ms)
				},
			},
			{
				Name:      "status",
				ArgsUsage: "<id> <active|inactive|suspended>",
				Action: func(cc *cli.Context) error {
					if cc.NArg() != 2 {
						return cli.Exit("usage: member status <id> <status>", 2)
					}
					m, err := c.api.Members.SetStatus(cc.Context, cc.Args().Get(0), cc.Args().Get(1))
					if err != nil {
						return err
					}
					return c.print(m)
				},
			},
		},
	}
}

func (c *ctl) accessCommand() *cli.Command {
	return &cli.Command{
		Name:  "access",
		Usage: "record and review building access",
		Subcommands: []*cli.Command{
			{
				Name: "log",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "member", Required: true},
					&cli.StringFlag{Name: "device", Required: true},
					&cli.StringFlag{Name: "location", Required: true},
					&cli.StringFlag{Name: "type", Value: model.EntryIn, Usage: "entry or exit"},
				},
				Action: func(cc *cli.Context) error {
					entry, err := c.api.Access.Log(cc.Context, model.AccessLog{
						MemberID:  cc.String("member"),
						DeviceID:  cc.String("device"),
						Location:  cc.String("location"),
						EntryType: cc.String("type"),
					})
					if err != nil {
						return err
					}
					return c.print(entry)
				},
			},
			{
				Name:      "history",
				ArgsUsage: "<member-id>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "days"}},
				Action: func(cc *cli.Context) error {
					id, err := requireArg(cc, "member-id")
					if err != nil {
						return err
					}
					logs, err := c.api.Access.History(cc.Context, id, cc.Int("days"))
					if err != nil {
						return err
					}
					return c.print(logs)
				},
			},
			{
				Name:  "stats",
				Usage: "entries, exits and unique members per location",
				Flags: []cli.Flag{&cli.IntFlag{Name: "days"}},
				Action: func(cc *cli.Context) error {
					stats, err := c.api.Access.Stats(cc.Context, cc.Int("days"))
					if err != nil {
						return err
					}
					return c.print(stats)
				},
			},
			{
				Name: "today",
				Action: func(cc *cli.Context) error {
					logs, err := c.api.Access.Today(cc.Context)
					if err != nil {
						return err
					}
					return c.print(logs)
				},
			},
		},
	}
}

func (c *ctl) invoiceCommand() *cli.Command {
	return &cli.Command{
		Name:  "invoice",
		Usage: "generate and settle invoices",
		Subcommands: []*cli.Command{
			{
				Name: "generate",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "member", Required: true},
					&cli.StringSliceFlag{Name: "reservation"},
					&cli.StringSliceFlag{Name: "usage"},
				},
				Action: func(cc *cli.Context) error {
					inv, err := c.api.Invoices.Generate(cc.Context, model.InvoiceRequest{
						MemberID:       cc.String("member"),
						ReservationIDs: cc.StringSlice("reservation"),
						UsageIDs:       cc.StringSlice("usage"),
					})
					if err != nil {
						return err
					}
					return c.print(inv)
				},
			},
			{
				Name:      "pay",
				ArgsUsage: "<id>",
				Action: func(cc *cli.Context) error {
					id, err := requireArg(cc, "id")
					if err != nil {
						return err
					}
					inv, err := c.api.Invoices.Pay(cc.Context, id)
					if err != nil {
						return err
					}
					return c.print(inv)
				},
			},
			{
				Name:      "member",
				ArgsUsage: "<member-id>",
				Action: func(cc *cli.Context) error {
					id, err := requireArg(cc, "member-id")
					if err != nil {
						return err
					}
					invs, err := c.api.Invoices.ByMember(cc.Context, id)
					if err != nil {
						return err
					}
					return c.print(invs)
				},
			},
			{
				Name: "overdue",
				Action: func(cc *cli.Context) error {
					invs, err := c.api.Invoices.Overdue(cc.Context)
					if err != nil {
						return err
					}
					return c.print(invs)
				},
			},
		},
	}
}

func (c *ctl) amenityCommand() *cli.Command {
	return &cli.Command{
		Name:  "amenity",
		Usage: "stock and sell amenity items",
		Subcommands: []*cli.Command{
			{
				Name: "create",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "category", Required: true},
					&cli.StringFlag{Name: "location", Required: true},
					&cli.StringFlag{Name: "vendor"},
					&cli.Int64Flag{Name: "unit-price", Required: true},
					&cli.Int64Flag{Name: "quantity"},
				},
				Action: func(cc *cli.Context) error {
					item, err := c.api.Amenities.Create(cc.Context, model.StockedItem{
						Name:              cc.String("name"),
						Category:          cc.String("category"),
						Location:          cc.String("location"),
						Vendor:            cc.String("vendor"),
						UnitPrice:         cc.Int64("unit-price"),
						AvailableQuantity: cc.Int64("quantity"),
					})
					if err != nil {
						return err
					}
					return c.print(item)
				},
			},
			{
				Name: "purchase",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "item", Required: true},
					&cli.StringFlag{Name: "member", Required: true},
					&cli.Int64Flag{Name: "quantity", Value: 1},
				},
				Action: func(cc *cli.Context) error {
					usage, err := c.api.Amenities.Purchase(cc.Context, model.PurchaseRequest{
						ItemID:   cc.String("item"),
						MemberID: cc.String("member"),
						Quantity: cc.Int64("quantity"),
					})
					if err != nil {
						return err
					}
					return c.print(usage)
				},
			},
			{
				Name:  "low-stock",
				Flags: []cli.Flag{&cli.IntFlag{Name: "threshold"}},
				Action: func(cc *cli.Context) error {
					items, err := c.api.Amenities.LowStock(cc.Context, cc.Int("threshold"))
					if err != nil {
						return err
					}
					return c.print(items)
				},
			},
		},
	}
}

func (c *ctl) reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "print a report",
		ArgsUsage: "<utilization|meeting-rooms|peak-hours|revenue|amenities|retention|access|dashboard>",
		Flags:     []cli.Flag{&cli.IntFlag{Name: "days"}},
		Action: func(cc *cli.Context) error {
			name, err := requireArg(cc, "name")
			if err != nil {
				return err
			}
			report, err := c.api.Reports.Get(cc.Context, name, cc.Int("days"))
			if err != nil {
				return err
			}
			return c.print(report)
		},
	}
}
