/*
Copyright © 2024 Dean
*/
package main

import "storeclip/cmd"

func main() {
	cmd.Execute()
}
