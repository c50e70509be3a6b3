package main

import "github.com/oshokin/catpoint/cmd/catpoint-camera/cmd"

func main() {
	cmd.Execute()
}
