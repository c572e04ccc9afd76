package main

import "github.com/sambabib/depdoctor/cmd"

func main() {
	cmd.Execute()
}
