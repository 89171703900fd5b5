package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"travellog/internal/config"
	"travellog/pkg/utils"
)

func printBanner(cfg *config.Config) {
	pterm.DefaultHeader.
		WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println(cfg.App.Name + " " + cfg.App.Version)

	cyan := color.New(color.FgHiCyan, color.Bold).SprintFunc()
	white := color.New(color.FgWhite).SprintFunc()

	fmt.Println()
	fmt.Printf("%s : %s\n", cyan("Environment "), white(cfg.Server.Env))
	fmt.Printf("%s : %s\n", cyan("Sessions    "), white(cfg.Auth.SessionStore))
	fmt.Printf("%s : %s\n", cyan("Upload limit"), white(utils.FormatBytes(cfg.MaxUploadBytes())))
	fmt.Println()
}
