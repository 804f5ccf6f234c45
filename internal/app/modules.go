package app

import (
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/vk/wrapgrid/modules/env"
	"github.com/vk/wrapgrid/modules/http"
	"github.com/vk/wrapgrid/modules/logger"
	"github.com/vk/wrapgrid/modules/socketio"
)

// coreModules is the definitive list of all plugins that are compiled into
// the wrapgrid binary.
var coreModules = []plugin.Module{
	&env.Module{},
	&logger.Module{},
	&http.Module{},
	&socketio.Module{},
}
