package main

import "face-attend-system/cmd"

func main() {
	cmd.Execute()
}
