package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/gwillem/pathtrack/pkg/config"
	"github.com/gwillem/pathtrack/pkg/robot"
	"github.com/gwillem/pathtrack/pkg/speed"
	"github.com/gwillem/pathtrack/pkg/steering"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Config string `long:"config" short:"c" default:"pathtrack.yaml" description:"Configuration file to write"`
}

var steeringLabels = map[string]string{
	steering.NamePurePursuit:  "Pure pursuit",
	steering.NameProportional: "Proportional heading",
}

var profileLabels = map[string]string{
	speed.NameConstant:   "Constant (always full speed)",
	speed.NameInverseLog: "Inverse log",
	speed.NameShiftedLog: "Shifted log",
	speed.NameLinear:     "Linear",
}

// setupAnswers holds the form values as strings until they are validated.
type setupAnswers struct {
	url       string
	steering  string
	profile   string
	adaptive  bool
	lookAhead string
	database  string
	plot      string
}

func answersFrom(cfg *config.Config) setupAnswers {
	return setupAnswers{
		url:       cfg.Robot.URL,
		steering:  cfg.Control.Steering,
		profile:   cfg.Control.SpeedProfile,
		adaptive:  cfg.Control.Adaptive,
		lookAhead: strconv.FormatFloat(cfg.Control.LookAhead, 'f', -1, 64),
		database:  cfg.Output.Database,
		plot:      cfg.Output.Plot,
	}
}

// apply copies the answers into cfg and validates the result.
func (a setupAnswers) apply(cfg *config.Config) error {
	lookAhead, err := parseLookAhead(a.lookAhead)
	if err != nil {
		return err
	}
	cfg.Robot.URL = a.url
	cfg.Control.Steering = a.steering
	cfg.Control.SpeedProfile = a.profile
	cfg.Control.Adaptive = a.adaptive
	cfg.Control.LookAhead = lookAhead
	cfg.Output.Database = a.database
	cfg.Output.Plot = a.plot
	return cfg.Validate()
}

func parseLookAhead(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, errors.Errorf("look-ahead must be a positive number of meters, got %q", s)
	}
	return v, nil
}

func validateURL(s string) error {
	_, err := robot.NewClient(robot.ClientConfig{URL: s})
	return err
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("pathtrack setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := config.Default()
	if config.Exists(c.Config) {
		loaded, err := config.LoadConfigFrom(c.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ignoring invalid %s: %v\n", c.Config, err)
		} else {
			cfg = loaded
			fmt.Printf("Editing %s\n\n", c.Config)
		}
	}

	answers := answersFrom(cfg)

	var steeringOptions []huh.Option[string]
	for _, name := range steering.Names() {
		steeringOptions = append(steeringOptions, huh.NewOption(steeringLabels[name], name))
	}
	var profileOptions []huh.Option[string]
	for _, name := range speed.Names() {
		profileOptions = append(profileOptions, huh.NewOption(profileLabels[name], name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Robot URL").
				Description("Base URL of the Lokarria server").
				Value(&answers.url).
				Validate(validateURL),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Steering").
				Options(steeringOptions...).
				Value(&answers.steering),
			huh.NewSelect[string]().
				Title("Speed profile").
				Options(profileOptions...).
				Value(&answers.profile),
			huh.NewInput().
				Title("Look-ahead distance (m)").
				Value(&answers.lookAhead).
				Validate(func(s string) error {
					_, err := parseLookAhead(s)
					return err
				}),
			huh.NewConfirm().
				Title("Adaptive look-ahead?").
				Description("Use the current linear speed as look-ahead distance").
				Value(&answers.adaptive),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Run database").
				Description("SQLite file to store runs in, empty to disable").
				Value(&answers.database),
			huh.NewInput().
				Title("Plot file").
				Description("Image written after each run, empty to disable").
				Value(&answers.plot),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("Setup aborted.")
			return nil
		}
		return err
	}

	if err := answers.apply(cfg); err != nil {
		return err
	}
	if err := cfg.SaveTo(c.Config); err != nil {
		return errors.Wrapf(err, "save %s", c.Config)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", c.Config)
	fmt.Println()
	fmt.Println("Start tracking with: " + headerStyle.Render("pathtrack track <path>"))
	return nil
}
