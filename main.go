// The main package for the keywordcrawl executable.
package main

import (
	"github.com/JakeFAU/keyword-crawler/cmd"
)

func main() {
	cmd.Execute()
}
