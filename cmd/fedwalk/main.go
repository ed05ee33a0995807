// Fedwalk trains a logistic regression model between two institutions with
// differentially private walk-based federated learning.
package main

import "github.com/relab/fedwalk/internal/cli"

func main() {
	cli.Execute()
}
