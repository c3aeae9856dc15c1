package main

import "github.com/dhcgn/olm-to-eml/cmd"

func main() {
	cmd.Execute()
}
