// Command passportctl runs passport exports and schema checks against a
// database without going through the HTTP API.
package main

import "os"

func main() {
	os.Exit(Execute())
}
