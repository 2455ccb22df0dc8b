/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kasa

import "encoding/json"

const (
	methodLogin         = "login"
	methodGetDeviceList = "getDeviceList"
	methodPassthrough   = "passthrough"

	appType = "Kasa_Android"

	// codeTokenExpired is returned for a stale or revoked token.
	codeTokenExpired = -20651
	// codeBadCredentials is returned for a wrong account or password.
	codeBadCredentials = -20601

	statusOnline = 1
)

type request struct {
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type response struct {
	ErrorCode int             `json:"error_code"`
	Message   string          `json:"msg,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

type loginParams struct {
	AppType       string `json:"appType"`
	CloudUserName string `json:"cloudUserName"`
	CloudPassword string `json:"cloudPassword"`
	TerminalUUID  string `json:"terminalUUID"`
}

type loginResult struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Token     string `json:"token"`
}

type deviceListResult struct {
	DeviceList []cloudDevice `json:"deviceList"`
}

type cloudDevice struct {
	DeviceID     string `json:"deviceId"`
	Alias        string `json:"alias"`
	DeviceModel  string `json:"deviceModel"`
	DeviceType   string `json:"deviceType"`
	Status       int    `json:"status"`
	AppServerURL string `json:"appServerUrl"`
}

type passthroughParams struct {
	DeviceID    string `json:"deviceId"`
	RequestData string `json:"requestData"`
}

type passthroughResult struct {
	ResponseData string `json:"responseData"`
}

type relayRequest struct {
	System struct {
		SetRelayState struct {
			State int `json:"state"`
		} `json:"set_relay_state"`
	} `json:"system"`
}

type relayResponse struct {
	System struct {
		SetRelayState struct {
			ErrCode int    `json:"err_code"`
			ErrMsg  string `json:"err_msg,omitempty"`
		} `json:"set_relay_state"`
	} `json:"system"`
}
