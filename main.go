package main

import "github.com/shouni/go-yt-comments/cmd"

func main() {
	cmd.Execute()
}
