/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


// Package mail delivers composed messages over SMTP. It provides the
// transport configuration derived per send, a connection pool that shares one
// SMTP session per configuration identity, client key store loading and a
// bounded dispatch queue for asynchronous hand-off.
package mail
