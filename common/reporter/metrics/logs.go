// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"fmt"

	"nfcollector/common/reporter/logger"
)

// promHTTPLogger lets promhttp log through our logger.
type promHTTPLogger struct {
	l logger.Logger
}

// Println logs at debug level.
func (m promHTTPLogger) Println(v ...interface{}) {
	if e := m.l.Debug(); e.Enabled() {
		e.Msg(fmt.Sprint(v...))
	}
}
