// Command canopy runs the canopy web-application server.
package main

import "github.com/canopy-web/canopy/cmd/canopy/cmd"

func main() {
	cmd.Execute()
}
