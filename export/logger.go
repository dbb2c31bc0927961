package export

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "export")
