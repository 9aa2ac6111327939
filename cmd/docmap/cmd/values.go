/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import "errors"

var errStopScan = errors.New("stop scan")
