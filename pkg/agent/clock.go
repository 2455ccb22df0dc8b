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

package agent

import "time"

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type nopRecorder struct{}

func (nopRecorder) CycleCompleted(time.Duration) {}
func (nopRecorder) ReadFailed(string)            {}
func (nopRecorder) PublishFailed()               {}
func (nopRecorder) PointsWritten(int)            {}
func (nopRecorder) Actuated(string, bool)        {}
func (nopRecorder) OutletState(float64, bool)    {}
