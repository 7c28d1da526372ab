// chargen is the Mistvale character-application server: applicants walk the
// stage pipeline, admins tune the implementations, reviewers decide.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
