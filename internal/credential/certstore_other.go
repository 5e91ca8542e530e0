//go:build !windows

package credential

import "fmt"

func loadFromStore(thumbprint string) (*Certificate, error) {
	return nil, fmt.Errorf("certificate store lookup by thumbprint is only supported on Windows; set certificatePath")
}
