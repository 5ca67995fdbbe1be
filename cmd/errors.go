// SPDX-License-Identifier: Apache-2.0

package cmd

import "errors"

var errNoConnectionGiven = errors.New("no connection id given; pass one as the first argument")
