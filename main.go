package main

import "github.com/thientv98/slack-oauth/cmd"

func main() {
	cmd.Execute()
}
